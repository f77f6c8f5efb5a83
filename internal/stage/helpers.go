package stage

import (
	"fmt"
	"os"
	"strings"

	"vidtrack/internal/services"
)

// RequireFile checks that path names a non-empty regular file. On failure it
// returns a services.ErrValidation suitable for stage Execute methods.
func RequireFile(stageName, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, stageName, "check input", "Input path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "check input",
			"Input file is not readable", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, stageName, "check input",
			fmt.Sprintf("Input %s is a directory", path), nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrValidation, stageName, "check input",
			fmt.Sprintf("Input %s is empty", path), nil)
	}
	return nil
}
