package model

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

//go:embed config.cue
var cueSource []byte

var (
	// cueMx serializes every use of cueCtx, cue.Context is not safe for
	// concurrent use
	cueMx         sync.Mutex
	cueCtx        *cue.Context
	schema        cue.Value
	payloadSchema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource, cue.Filename("config.cue"))
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	payloadSchema = compiled.LookupPath(cue.ParsePath("#Payload"))
	if payloadSchema.Err() != nil {
		panic(payloadSchema.Err())
	}
}

type Config struct {
	Version  int      `json:"version" yaml:"version"` // fixed 0 for now
	Script   Script   `json:"script" yaml:"script"`
	Task     Task     `json:"task" yaml:"task"`
	Schedule Schedule `json:"schedule" yaml:"schedule"`
	Service  Service  `json:"service" yaml:"service"`
}

// Script selects the generator interpreter and an optional explicit script location.
type Script struct {
	Interpreter string `json:"interpreter" yaml:"interpreter"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"` // tried before the bundled candidates
}

// Task limits a single execution.
type Task struct {
	MaxDuration string `json:"max_duration" yaml:"max_duration"` // e.g. 5m, 1h30m
	MaxOutput   int64  `json:"max_output" yaml:"max_output"`     // stdout+stderr, bytes
}

// Schedule configures the daily trigger.
type Schedule struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Cron     string `json:"cron" yaml:"cron"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

type Service struct {
	Verbose bool   `json:"verbose" yaml:"verbose"`
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`         // task results directory
	Webhook string `json:"webhook,omitempty" yaml:"webhook,omitempty"` // task results endpoint
}

// Duration returns MaxDuration as time.Duration.
func (t Task) Duration() (time.Duration, error) {
	d, err := ParseCueDuration(t.MaxDuration)
	if err != nil {
		return 0, fmt.Errorf("parsing task.max_duration: %w", err)
	}
	return d, nil
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}

	out, err := decodeConfig(yamlFile)
	if err != nil {
		return Config{}, err
	}

	if _, err := ParseCron(out.Schedule.Cron); err != nil {
		return Config{}, fmt.Errorf("parsing schedule.cron: %w", err)
	}
	if _, err := out.Task.Duration(); err != nil {
		return Config{}, err
	}

	return out, nil
}

func decodeConfig(file *ast.File) (Config, error) {
	cueMx.Lock()
	defer cueMx.Unlock()

	unified := schema.Unify(cueCtx.BuildFile(file))
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}
	return out, nil
}

// DefaultConfig is the configuration with every schema default applied.
func DefaultConfig() Config {
	cfg, err := LoadConfig(strings.NewReader("version: 0\n"))
	if err != nil {
		panic(err)
	}
	return cfg
}
