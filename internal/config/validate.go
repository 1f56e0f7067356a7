package config

import "fmt"

// Validate 递归校验所有子配置
func (c *Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.IVFilter.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
