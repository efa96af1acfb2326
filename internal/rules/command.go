package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleCommandInjection = "HUSK-D212"

// shellSinks take a command string executed by a shell.
var shellSinks = map[string]struct{}{
	"os.system":                {},
	"os.popen":                 {},
	"commands.getoutput":       {},
	"commands.getstatusoutput": {},
}

// subprocessSinks execute their first argument; dangerous when the command is
// tainted or string-built, especially with shell=True.
var subprocessSinks = map[string]struct{}{
	"subprocess.run":          {},
	"subprocess.call":         {},
	"subprocess.check_call":   {},
	"subprocess.check_output": {},
	"subprocess.Popen":        {},
}

// ScanCommand reports shell commands built from tainted or interpolated
// strings.
func ScanCommand(res *parser.ParseResult) []models.Finding {
	w := taint.NewWalker(res.Path, res.Source, taint.ShellSanitizers)

	w.OnCall = func(node *sitter.Node) {
		qn := taint.QualifiedCallName(node, res.Source)
		if qn == "" {
			return
		}

		if _, ok := shellSinks[qn]; ok {
			args := positionalArgs(node)
			if len(args) == 0 {
				return
			}
			if w.IsTainted(args[0], taint.ClassCommand) {
				w.Report(ruleCommandInjection, models.SeverityCritical,
					"Possible command injection: tainted command passed to shell.", node)
			} else if taint.StringBuilt(args[0], res.Source) {
				w.Report(ruleCommandInjection, models.SeverityHigh,
					"Shell command built from interpolated string.", node)
			}
			return
		}

		if _, ok := subprocessSinks[qn]; ok {
			args := positionalArgs(node)
			if len(args) == 0 {
				return
			}
			cmd := args[0]
			tainted := w.IsTainted(cmd, taint.ClassCommand)
			built := taint.StringBuilt(cmd, res.Source)
			if !tainted && !built {
				return
			}
			shell := keywordArg(node, res.Source, "shell")
			shellTrue := shell != nil && strings.TrimSpace(string(res.Source[shell.StartByte():shell.EndByte()])) == "True"
			switch {
			case tainted && shellTrue:
				w.Report(ruleCommandInjection, models.SeverityCritical,
					"Possible command injection: tainted command with shell=True.", node)
			case tainted:
				w.Report(ruleCommandInjection, models.SeverityHigh,
					"Tainted value passed to subprocess.", node)
			case built && shellTrue:
				w.Report(ruleCommandInjection, models.SeverityHigh,
					"Interpolated command with shell=True.", node)
			}
		}
	}

	w.Run(res.Tree.RootNode())
	return w.Findings()
}
