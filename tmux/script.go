package tmux

import (
	"fmt"

	"github.com/kballard/go-shellquote"
)

// RunScript builds the shell script a job session executes: run the
// agent command with combined output redirected to the log file, write
// the exit code to its marker, then touch the completion marker. The
// markers are written by the script itself so the orchestrator never
// has to stay attached to observe completion.
func RunScript(argv []string, logPath, exitCodePath, donePath string) string {
	return fmt.Sprintf("%s > %s 2>&1; echo $? > %s; touch %s",
		shellquote.Join(argv...),
		shellquote.Join(logPath),
		shellquote.Join(exitCodePath),
		shellquote.Join(donePath),
	)
}

// AgentCommand builds the agent invocation argv for a resolved prompt:
// <bin> run [--agent <name>] "<prompt>".
func AgentCommand(bin, agentName, prompt string) []string {
	argv := []string{bin, "run"}
	if agentName != "" {
		argv = append(argv, "--agent", agentName)
	}
	return append(argv, prompt)
}
