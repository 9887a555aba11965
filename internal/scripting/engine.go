package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for timeline scripts.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm    *lua.LState
	log   *zap.Logger
	frame func() uint64
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory: lib/ first, then the directory itself. A missing directory is
// not an error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log.Named("lua")}
	e.registerBuiltins()

	if scriptsDir == "" {
		return e, nil
	}
	for _, dir := range []string{filepath.Join(scriptsDir, "lib"), scriptsDir} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts %s: %w", dir, err)
		}
	}
	return e, nil
}

// SetFrameSource installs the function behind the Lua frame() builtin.
func (e *Engine) SetFrameSource(fn func() uint64) { e.frame = fn }

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source in the engine's global scope.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Has reports whether a global function with the given name is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

func (e *Engine) registerBuiltins() {
	e.vm.SetGlobal("log", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Info(L.CheckString(1))
		return 0
	}))
	e.vm.SetGlobal("frame", e.vm.NewFunction(func(L *lua.LState) int {
		var f uint64
		if e.frame != nil {
			f = e.frame()
		}
		L.Push(lua.LNumber(f))
		return 1
	}))
}

// Ease returns a curve backed by the Lua function name(t) -> number. A Lua
// error falls back to linear progress.
func (e *Engine) Ease(name string) (func(float64) float64, error) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("lua function %q not found", name)
	}
	return func(t float64) float64 {
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, lua.LNumber(t)); err != nil {
			e.log.Error("lua ease error", zap.String("func", name), zap.Error(err))
			return t
		}
		result := e.vm.Get(-1)
		e.vm.Pop(1)
		return float64(lua.LVAsNumber(result))
	}, nil
}

// Call invokes the global Lua function name(args...) and discards its
// results.
func (e *Engine) Call(name string, args ...any) error {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return fmt.Errorf("lua function %q not found", name)
	}
	largs, err := toLValues(args)
	if err != nil {
		return fmt.Errorf("call %s: %w", name, err)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, largs...); err != nil {
		return fmt.Errorf("call %s: %w", name, err)
	}
	return nil
}

func toLValues(args []any) ([]lua.LValue, error) {
	out := make([]lua.LValue, len(args))
	for i, a := range args {
		v, err := toLValue(a)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// toLValue converts a decoded YAML or Go scalar to a Lua value.
func toLValue(v any) (lua.LValue, error) {
	switch x := v.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(x), nil
	case string:
		return lua.LString(x), nil
	case int:
		return lua.LNumber(x), nil
	case int64:
		return lua.LNumber(x), nil
	case uint64:
		return lua.LNumber(x), nil
	case float64:
		return lua.LNumber(x), nil
	}
	return nil, fmt.Errorf("unsupported lua argument %T", v)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
