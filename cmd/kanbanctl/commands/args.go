package commands

import (
	"strconv"
	"time"

	"github.com/urfave/cli/v3"
)

// idArg parses the positional argument at index as a resource id.
func idArg(cmd *cli.Command, index int, name string) (int64, error) {
	raw := cmd.Args().Get(index)
	if raw == "" {
		return 0, usageError("missing %s", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError("invalid %s %q", name, raw)
	}
	return id, nil
}

// optionalString returns a pointer to the flag value when the flag is set.
func optionalString(cmd *cli.Command, name string) *string {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.String(name)
	return &v
}

func optionalInt64(cmd *cli.Command, name string) *int64 {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.Int64(name)
	return &v
}

func optionalFloat(cmd *cli.Command, name string) *float64 {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.Float(name)
	return &v
}

func optionalInt(cmd *cli.Command, name string) *int {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.Int(name)
	return &v
}

// optionalTime parses an RFC 3339 flag value.
func optionalTime(cmd *cli.Command, name string) (*time.Time, error) {
	if !cmd.IsSet(name) {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, cmd.String(name))
	if err != nil {
		return nil, usageError("--%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}
