package symbols

// pythonBuiltins are names that qualify to themselves rather than through the
// current module.
var pythonBuiltins = map[string]struct{}{
	"print": {}, "len": {}, "str": {}, "int": {}, "float": {}, "list": {},
	"dict": {}, "set": {}, "tuple": {}, "range": {}, "open": {}, "super": {},
	"object": {}, "type": {}, "enumerate": {}, "zip": {}, "map": {},
	"filter": {}, "sorted": {}, "reversed": {}, "sum": {}, "min": {},
	"max": {}, "all": {}, "any": {}, "next": {}, "iter": {}, "repr": {},
	"chr": {}, "ord": {}, "bytes": {}, "bytearray": {}, "memoryview": {},
	"format": {}, "round": {}, "abs": {}, "pow": {}, "divmod": {},
	"complex": {}, "hash": {}, "id": {}, "bool": {}, "callable": {},
	"getattr": {}, "setattr": {}, "delattr": {}, "hasattr": {},
	"isinstance": {}, "issubclass": {}, "globals": {}, "locals": {},
	"vars": {}, "dir": {}, "property": {}, "classmethod": {},
	"staticmethod": {},
}

// dynamicPatterns are constructs that make a module's symbols reachable
// through reflection-style access. Seeing one taints the module root.
var dynamicPatterns = map[string]struct{}{
	"getattr": {},
	"globals": {},
	"eval":    {},
	"exec":    {},
}

// frameworkDecoratorHints mark symbols invoked by a framework rather than by
// explicit calls. A decorated definition matching one of these is credited a
// reference so it is never flagged dead.
var frameworkDecoratorHints = []string{
	"route", "get", "post", "put", "delete", "patch", "websocket",
	"task", "hook", "fixture", "signal", "receiver", "listens_for",
	"command", "event", "callback", "register", "subscribe",
	"validator", "middleware",
}

// propertyDecorators are the stdlib descriptor decorators; the runtime calls
// the decorated function on attribute access.
var propertyDecorators = map[string]struct{}{
	"property":        {},
	"setter":          {},
	"deleter":         {},
	"getter":          {},
	"cached_property": {},
	"staticmethod":    {},
	"classmethod":     {},
	"abstractmethod":  {},
	"override":        {},
	"overload":        {},
}
