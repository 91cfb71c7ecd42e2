// Package cli implements the ffx command, a device-side tool for inspecting identity and usage
// state and for calling the backend as the device would.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const (
	groupDevice  = "device"
	groupBackend = "backend"
)

// NewRootCmd builds the command tree. Each call gets its own flag state. The returned func
// releases the stores a command opened and must be called after Execute, whatever its result.
func NewRootCmd() (*cobra.Command, func()) {
	e := &env{}
	return newRootCmd(e), e.close
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:          "ffx",
		Short:        "FastFlix device identity, usage and entitlement tool",
		SilenceUsage: true,
	}
	root.AddGroup(&cobra.Group{ID: groupDevice, Title: "Device State"})
	root.AddGroup(&cobra.Group{ID: groupBackend, Title: "Backend"})

	flags := root.PersistentFlags()
	flags.StringVar(&e.dataDir, "data-dir", envOr("FFX_DATA_DIR", defaultDataDir()), "directory for the local database and logs")
	flags.StringVar(&e.redisURL, "redis-url", envOr("FFX_REDIS_URL", ""), "keep usage data in Redis instead of the local database")
	flags.BoolVar(&e.noKeychain, "no-keychain", false, "keep the device identity in memory only (for CI)")
	flags.StringVar(&e.apiURL, "api-url", envOr("FFX_API_URL", "http://localhost:8080"), "backend base URL")
	flags.StringVar(&e.token, "token", envOr("FFX_TOKEN", ""), "session token from sign-in")

	root.AddCommand(
		newDeviceCmd(e),
		newUsageCmd(e),
		newMigrateCmd(e),
		newSearchCmd(e),
		newTrialCmd(e),
		newMeCmd(e),
	)
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
