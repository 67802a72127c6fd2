package orm

import (
	"strings"
)

// ConvertSQLCommands splits the lines of a .sql script into individual
// statements. "--" comments and blank lines are dropped, statements end at ";".
// Input is the script split into lines.
func ConvertSQLCommands(lines []string) []string {
	var commands []string
	var currentCommand strings.Builder

	for _, line := range lines {
		if commentIndex := strings.Index(line, "--"); commentIndex != -1 {
			line = line[:commentIndex]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		currentCommand.WriteString(line)
		currentCommand.WriteString(" ")

		if strings.Contains(line, ";") {
			parts := strings.Split(currentCommand.String(), ";")
			for _, part := range parts[:len(parts)-1] {
				if command := strings.TrimSpace(part); command != "" {
					commands = append(commands, command)
				}
			}
			currentCommand.Reset()
			currentCommand.WriteString(parts[len(parts)-1])
		}
	}

	if command := strings.TrimSpace(currentCommand.String()); command != "" {
		commands = append(commands, command)
	}

	return commands
}

// SecondToMs converts seconds to milliseconds
func SecondToMs(s float64) float64 {
	return s * 1000
}
