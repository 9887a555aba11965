package data

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/action/internal/action"
	"github.com/l1jgo/action/internal/scripting"
)

// Timeline is a named sequence of steps, compiled into one action tree.
type Timeline struct {
	Name  string `yaml:"name"`
	Note  string `yaml:"note"`
	Steps []Step `yaml:"steps"`
}

// Step is one node of a timeline. Exactly one of the kind fields is set.
type Step struct {
	Name string `yaml:"name"` // optional unit label

	Log    string         `yaml:"log"`
	Call   string         `yaml:"call"` // Lua function run once
	Wait   *time.Duration `yaml:"wait"`
	Frames *uint64        `yaml:"frames"`
	Lerp   *LerpStep      `yaml:"lerp"`
	Lua    string         `yaml:"lua"` // Lua function run as a coroutine
	Args   []any          `yaml:"args"`

	Sequence []Step `yaml:"sequence"`
	Parallel []Step `yaml:"parallel"`
	Race     []Step `yaml:"race"`
}

// LerpStep interpolates a blackboard value.
type LerpStep struct {
	Target   string        `yaml:"target"`
	From     float64       `yaml:"from"`
	To       float64       `yaml:"to"`
	Duration time.Duration `yaml:"duration"`
	Ease     string        `yaml:"ease"` // "", "smooth" or a Lua function name
}

var errNoKind = errors.New("step has no kind")

// kind returns the single kind name set on the step.
func (s *Step) kind() (string, error) {
	var kinds []string
	if s.Log != "" {
		kinds = append(kinds, "log")
	}
	if s.Call != "" {
		kinds = append(kinds, "call")
	}
	if s.Wait != nil {
		kinds = append(kinds, "wait")
	}
	if s.Frames != nil {
		kinds = append(kinds, "frames")
	}
	if s.Lerp != nil {
		kinds = append(kinds, "lerp")
	}
	if s.Lua != "" {
		kinds = append(kinds, "lua")
	}
	if s.Sequence != nil {
		kinds = append(kinds, "sequence")
	}
	if s.Parallel != nil {
		kinds = append(kinds, "parallel")
	}
	if s.Race != nil {
		kinds = append(kinds, "race")
	}
	switch len(kinds) {
	case 0:
		return "", errNoKind
	case 1:
		return kinds[0], nil
	}
	return "", fmt.Errorf("step sets several kinds %v", kinds)
}

// TimelineTable holds the loaded timelines in file order.
type TimelineTable struct {
	list   []*Timeline
	byName map[string]*Timeline
}

// LoadTimelines loads and validates a timelines YAML file.
func LoadTimelines(path string) (*TimelineTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timelines: %w", err)
	}
	t, err := ParseTimelines(raw)
	if err != nil {
		return nil, fmt.Errorf("timelines %s: %w", path, err)
	}
	return t, nil
}

// ParseTimelines decodes and validates timeline YAML.
func ParseTimelines(raw []byte) (*TimelineTable, error) {
	var file struct {
		Timelines []Timeline `yaml:"timelines"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse timelines: %w", err)
	}
	t := &TimelineTable{
		list:   make([]*Timeline, 0, len(file.Timelines)),
		byName: make(map[string]*Timeline, len(file.Timelines)),
	}
	for i := range file.Timelines {
		tl := &file.Timelines[i]
		if tl.Name == "" {
			return nil, fmt.Errorf("timelines[%d]: missing name", i)
		}
		if _, dup := t.byName[tl.Name]; dup {
			return nil, fmt.Errorf("timeline %q defined twice", tl.Name)
		}
		if err := validateSteps(tl.Steps, "steps"); err != nil {
			return nil, fmt.Errorf("timeline %q: %w", tl.Name, err)
		}
		t.list = append(t.list, tl)
		t.byName[tl.Name] = tl
	}
	return t, nil
}

func validateSteps(steps []Step, path string) error {
	for i := range steps {
		if err := validateStep(&steps[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(s *Step, path string) error {
	kind, err := s.kind()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	switch kind {
	case "wait":
		if *s.Wait < 0 {
			return fmt.Errorf("%s: negative wait %s", path, *s.Wait)
		}
	case "lerp":
		if s.Lerp.Target == "" {
			return fmt.Errorf("%s: lerp without target", path)
		}
		if s.Lerp.Duration < 0 {
			return fmt.Errorf("%s: negative lerp duration %s", path, s.Lerp.Duration)
		}
	case "sequence":
		return validateSteps(s.Sequence, path+".sequence")
	case "parallel":
		return validateSteps(s.Parallel, path+".parallel")
	case "race":
		return validateSteps(s.Race, path+".race")
	}
	if len(s.Args) > 0 && kind != "lua" && kind != "call" {
		return fmt.Errorf("%s: args only apply to lua and call steps", path)
	}
	return nil
}

// Get returns the timeline with the given name, or nil.
func (t *TimelineTable) Get(name string) *Timeline {
	return t.byName[name]
}

// Count returns the total number of timelines loaded.
func (t *TimelineTable) Count() int {
	return len(t.list)
}

// Names returns timeline names in file order.
func (t *TimelineTable) Names() []string {
	names := make([]string, len(t.list))
	for i, tl := range t.list {
		names[i] = tl.Name
	}
	return names
}

// Env is what compiled steps run against.
type Env struct {
	Log   *zap.Logger
	Lua   *scripting.Engine // nil disables call and lua steps
	Board *Blackboard
}

// Compile builds the timeline's action tree on ctx. The result is a
// Sequence labelled with the timeline name, ready for Driver.Start. On error
// every unit built so far is released.
func (tl *Timeline) Compile(ctx *action.Context, env Env) (action.Action, error) {
	c := compiler{ctx: ctx, env: env, timeline: tl.Name}
	root := ctx.Sequence()
	root.SetLabel(tl.Name)
	if err := c.fill(root, tl.Steps, "steps"); err != nil {
		ctx.Release(root)
		return nil, fmt.Errorf("compile %q: %w", tl.Name, err)
	}
	return root, nil
}

type compiler struct {
	ctx      *action.Context
	env      Env
	timeline string
}

type container interface {
	action.Action
	Add(children ...action.Action) error
}

func (c *compiler) fill(parent container, steps []Step, path string) error {
	for i := range steps {
		p := fmt.Sprintf("%s[%d]", path, i)
		a, err := c.step(&steps[i], p)
		if err != nil {
			return err
		}
		if err := parent.Add(a); err != nil {
			c.ctx.Release(a)
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (c *compiler) step(s *Step, path string) (action.Action, error) {
	kind, err := s.kind()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var a action.Action
	switch kind {
	case "log":
		a = c.logStep(s.Log)
	case "call":
		a, err = c.callStep(s)
	case "wait":
		a = c.ctx.Delay(*s.Wait, nil)
	case "frames":
		a = c.ctx.DelayFrame(*s.Frames)
	case "lerp":
		a, err = c.lerpStep(s.Lerp)
	case "lua":
		a, err = c.luaStep(s)
	case "sequence":
		return c.group(c.ctx.Sequence(), s, s.Sequence, path+".sequence")
	case "parallel":
		return c.group(c.ctx.Parallel(), s, s.Parallel, path+".parallel")
	case "race":
		return c.group(c.ctx.Race(), s, s.Race, path+".race")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name != "" {
		a.SetLabel(s.Name)
	}
	return a, nil
}

// group fills a composite; errors already carry the child's path.
func (c *compiler) group(g container, s *Step, steps []Step, path string) (action.Action, error) {
	if err := c.fill(g, steps, path); err != nil {
		c.ctx.Release(g)
		return nil, err
	}
	if s.Name != "" {
		g.SetLabel(s.Name)
	}
	return g, nil
}

func (c *compiler) logStep(msg string) action.Action {
	log := c.env.Log
	timeline := c.timeline
	return c.ctx.Callback(func() {
		if log != nil {
			log.Info(msg, zap.String("timeline", timeline))
		}
	})
}

func (c *compiler) callStep(s *Step) (action.Action, error) {
	if c.env.Lua == nil {
		return nil, fmt.Errorf("call %s: scripting disabled", s.Call)
	}
	if !c.env.Lua.Has(s.Call) {
		return nil, fmt.Errorf("lua function %q not found", s.Call)
	}
	eng, name, args := c.env.Lua, s.Call, s.Args
	return c.ctx.Try(func() error { return eng.Call(name, args...) }), nil
}

func (c *compiler) lerpStep(l *LerpStep) (action.Action, error) {
	var set func(float64)
	if c.env.Board != nil {
		set = c.env.Board.Setter(l.Target)
	}
	u := c.ctx.Lerp(l.From, l.To, l.Duration, set)
	switch l.Ease {
	case "":
	case "smooth":
		u.Ease(action.EaseInOut)
	default:
		if c.env.Lua == nil {
			c.ctx.Release(u)
			return nil, fmt.Errorf("ease %s: scripting disabled", l.Ease)
		}
		ease, err := c.env.Lua.Ease(l.Ease)
		if err != nil {
			c.ctx.Release(u)
			return nil, err
		}
		u.Ease(ease)
	}
	return u, nil
}

func (c *compiler) luaStep(s *Step) (action.Action, error) {
	if c.env.Lua == nil {
		return nil, fmt.Errorf("lua %s: scripting disabled", s.Lua)
	}
	co, err := c.env.Lua.Coroutine(s.Lua, s.Args...)
	if err != nil {
		return nil, err
	}
	log := c.env.Log
	name := s.Lua
	return c.ctx.Bridge(co, func(err error) {
		if err != nil && log != nil {
			log.Warn("lua step failed",
				zap.String("func", name),
				zap.Int("resumes", co.Resumes()),
				zap.Error(err),
			)
		}
	}), nil
}
