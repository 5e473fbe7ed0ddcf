package gateway

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mt5-bridge/internal/terminal"
)

// Command names the gateway's dispatchable operations.
type Command string

const (
	CmdConnect        Command = "connect"
	CmdAccountInfo    Command = "account_info"
	CmdPrice          Command = "price"
	CmdPositions      Command = "positions"
	CmdPlaceOrder     Command = "place_order"
	CmdClosePosition  Command = "close_position"
	CmdModifyPosition Command = "modify_position"
	CmdCancelOrder    Command = "cancel_order"
	CmdHistory        Command = "historical_data"
	CmdListSymbols    Command = "list_symbols"
)

// Policy resolves the per-command auth coverage and order execution
// knobs that historically diverged between service variants.
type Policy struct {
	// AuthExempt lists commands served without a session check.
	AuthExempt []Command

	Order struct {
		Filling       string // IOC or FOK
		RetryAttempts int
		RetryDelay    time.Duration
		Deviation     int
		Magic         int64
	}
}

// policyFile is the on-disk YAML shape. Durations are strings so the
// file can say "250ms" instead of nanosecond integers; absent fields
// keep their defaults.
type policyFile struct {
	AuthExempt *[]Command `yaml:"auth_exempt"`

	Order struct {
		Filling       string `yaml:"filling"`
		RetryAttempts *int   `yaml:"retry_attempts"`
		RetryDelay    string `yaml:"retry_delay"`
		Deviation     *int   `yaml:"deviation"`
		Magic         *int64 `yaml:"magic"`
	} `yaml:"order"`
}

// DefaultPolicy matches the observed behavior: symbol listing and raw
// quote lookups are public, everything else requires a session.
func DefaultPolicy() Policy {
	var p Policy
	p.AuthExempt = []Command{CmdPrice, CmdListSymbols}
	p.Order.Filling = "IOC"
	p.Order.RetryAttempts = 3
	p.Order.RetryDelay = 500 * time.Millisecond
	p.Order.Deviation = 20
	p.Order.Magic = 12345
	return p
}

// LoadPolicy reads a YAML policy file, filling gaps with defaults.
func LoadPolicy(path string) (Policy, error) {
	return LoadPolicyFrom(DefaultPolicy(), path)
}

// LoadPolicyFrom reads a YAML policy file on top of base. Fields the
// file sets win; fields it omits keep the base values.
func LoadPolicyFrom(base Policy, path string) (Policy, error) {
	p := base
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return p, fmt.Errorf("parse policy file: %w", err)
	}

	if f.AuthExempt != nil {
		p.AuthExempt = *f.AuthExempt
	}
	if f.Order.Filling != "" {
		p.Order.Filling = f.Order.Filling
	}
	if f.Order.RetryAttempts != nil && *f.Order.RetryAttempts > 0 {
		p.Order.RetryAttempts = *f.Order.RetryAttempts
	}
	if f.Order.RetryDelay != "" {
		d, err := time.ParseDuration(f.Order.RetryDelay)
		if err != nil {
			return p, fmt.Errorf("parse policy retry_delay: %w", err)
		}
		if d > 0 {
			p.Order.RetryDelay = d
		}
	}
	if f.Order.Deviation != nil {
		p.Order.Deviation = *f.Order.Deviation
	}
	if f.Order.Magic != nil {
		p.Order.Magic = *f.Order.Magic
	}
	return p, nil
}

func (p Policy) exempt(cmd Command) bool {
	for _, c := range p.AuthExempt {
		if c == cmd {
			return true
		}
	}
	return false
}

// fillingCode maps the configured fill policy to the terminal constant.
func (p Policy) fillingCode() int {
	if p.Order.Filling == "FOK" {
		return terminal.OrderFillingFOK
	}
	return terminal.OrderFillingIOC
}
