package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vidtrack/internal/api"
	"vidtrack/internal/config"
)

const clientTimeout = 30 * time.Second

type commandContext struct {
	configFlag *string
	addrFlag   *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, addrFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		addrFlag:   addrFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) address() string {
	if addr := flagValue(c.addrFlag); addr != "" {
		return addr
	}
	if c.config != nil {
		return c.config.API.Bind
	}
	return ""
}

func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	token := flagValue(c.tokenFlag)
	if token == "" {
		token = cfg.API.Token
	}
	return api.NewClient(c.address(), token, clientTimeout), nil
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		return c.wrapClientError(err)
	}
	return nil
}

func (c *commandContext) wrapClientError(err error) error {
	if errors.Is(err, context.Canceled) || !api.IsUnavailable(err) {
		return err
	}
	return fmt.Errorf("%w; start the daemon with `vidtrack daemon` or vidtrackd", err)
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
