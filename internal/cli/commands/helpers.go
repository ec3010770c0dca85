package commands

import (
	"context"

	"github.com/aki/weblaunch/internal/app"
)

// newContainer builds the full component graph for commands that run or
// resolve the server
func newContainer(ctx context.Context) (*app.Container, error) {
	log, err := CreateLogger()
	if err != nil {
		return nil, err
	}
	return app.NewContainer(ctx, flagConfigDir, log)
}

// newConfigContainer is used by commands that only edit the configuration
func newConfigContainer() (*app.Container, error) {
	return app.NewConfigOnly(flagConfigDir)
}
