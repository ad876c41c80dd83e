package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bkase/aethel/internal/platform"
	"github.com/bkase/aethel/pkg/core"
)

func openVault(cmd *cobra.Command) (*platform.Vault, error) {
	path, err := vaultPath()
	if err != nil {
		return nil, err
	}
	return platform.New(cmd.Context(), path, platform.WithLogger(slog.Default()))
}

// parseFields turns repeated key=value flags into string header fields.
func parseFields(pairs []string) (map[string]core.Value, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]core.Value, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: no `=` found in `%s`", core.ErrValidation, pair)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty field name in `%s`", core.ErrValidation, pair)
		}
		fields[key] = core.String(value)
	}
	return fields, nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid UUID %q", core.ErrValidation, s)
	}
	return id, nil
}
