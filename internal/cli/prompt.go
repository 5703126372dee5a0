package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// PromptManifestPath asks for the manifest location and returns def when the
// answer is empty or input is exhausted.
func PromptManifestPath(in io.Reader, out io.Writer, def string) (string, error) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(out, "Enter the path to the %s file\n", green("modrinth.index.json"))
	fmt.Fprintf(out, "Or press Enter to use default (%s):\n", yellow(def))
	fmt.Fprintf(out, "%s ", green(">"))

	// Read one full line; EOF without input means the default.
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return def, nil
	}

	answer := strings.TrimSpace(scanner.Text())
	if answer == "" {
		return def, nil
	}
	return answer, nil
}
