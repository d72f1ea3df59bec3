package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/lettertrack/internal/app"
	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

var errActorRequired = errors.New("actor required: pass --actor or set LETTERTRACK_ACTOR")

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	actorFlag  *string
	adminFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, actorFlag *string, adminFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		actorFlag:  actorFlag,
		adminFlag:  adminFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadFrom(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// actor returns the identity recorded for mutations made by this process.
func (c *commandContext) actor() (domain.Actor, error) {
	var id string
	if c.actorFlag != nil {
		id = strings.TrimSpace(*c.actorFlag)
	}
	if id == "" {
		return domain.Actor{}, errActorRequired
	}
	return domain.Actor{ID: id, Admin: c.adminFlag != nil && *c.adminFlag}, nil
}

// withStorage opens the configured engine for the duration of fn. Log
// output goes to the command's stderr so that stdout stays parseable.
func (c *commandContext) withStorage(cmd *cobra.Command, migrate bool, fn func(*app.Storage, *app.Services) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := app.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log)

	st, err := app.OpenStorage(cmd.Context(), cfg, logger, migrate)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	return fn(st, app.NewServices(logger, st, cfg))
}

func (c *commandContext) withServices(cmd *cobra.Command, fn func(*app.Services) error) error {
	return c.withStorage(cmd, false, func(_ *app.Storage, svc *app.Services) error {
		return fn(svc)
	})
}
