package config

// Syntax check modes.
const (
	SyntaxAuto        = "auto"
	SyntaxBuiltin     = "builtin"
	SyntaxInterpreter = "interpreter"
)

// PythonConfig describes the interpreter used for environment checks.
type PythonConfig struct {
	Interpreter string `yaml:"interpreter"`
	// SyntaxCheck is "auto" (the interpreter when it is on PATH, else the
	// in-process parser), "builtin" or "interpreter".
	SyntaxCheck string `yaml:"syntax_check"`
	// InspectEnvironment enables the installed-package check.
	InspectEnvironment bool `yaml:"inspect_environment"`
}

// DefaultPythonConfig returns interpreter defaults.
func DefaultPythonConfig() PythonConfig {
	return PythonConfig{
		Interpreter:        "python3",
		SyntaxCheck:        SyntaxAuto,
		InspectEnvironment: true,
	}
}
