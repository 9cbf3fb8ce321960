package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	log "github.com/sirupsen/logrus"
)

// RootBinding is the host object the bundle expects to find its primitives on.
const RootBinding = "window"

const DefaultMaxCallStackSize = 4096

type Options struct {
	MaxCallStackSize int
	Logger           *log.Entry
}

// Sandbox is one isolated global-binding table. It must not be shared
// between extractions and is not safe for concurrent use, except for
// Interrupt.
type Sandbox struct {
	vm     *goja.Runtime
	logger *log.Entry
}

// New builds a fresh runtime whose globals are the ECMAScript builtins plus
// the window root binding. Nothing from the host process is reachable.
func New(opts Options) (*Sandbox, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	if opts.MaxCallStackSize <= 0 {
		opts.MaxCallStackSize = DefaultMaxCallStackSize
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(opts.MaxCallStackSize)

	sb := &Sandbox{
		vm:     vm,
		logger: opts.Logger.WithField("component", "sandbox"),
	}

	window, err := sb.buildWindow()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s binding: %w", RootBinding, err)
	}
	if err := vm.Set(RootBinding, window); err != nil {
		return nil, err
	}

	return sb, nil
}

func (s *Sandbox) buildWindow() (*goja.Object, error) {
	vm := s.vm
	window := vm.NewObject()

	stringProto := vm.Get("String").ToObject(vm).Get("prototype").ToObject(vm)
	for _, name := range []string{"charCodeAt", "charAt"} {
		if err := window.Set(name, stringProto.Get(name)); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{"String", "Array", "Object", "Function", "Boolean", "Number", "Math", "BigInt", "parseFloat"} {
		v := vm.Get(name)
		if v == nil {
			return nil, fmt.Errorf("builtin %s is missing", name)
		}
		if err := window.Set(name, v); err != nil {
			return nil, err
		}
	}

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}

	shims := map[string]interface{}{
		"Buffer":  s.bufferShim(),
		"process": s.processShim(),
		"console": s.consoleShim(),
		"require": s.requireShim,
		"module":  module,
		"exports": exports,
	}
	for name, v := range shims {
		if err := window.Set(name, v); err != nil {
			return nil, err
		}
	}

	return window, nil
}

func (s *Sandbox) bufferShim() *goja.Object {
	vm := s.vm
	buffer := vm.NewObject()

	toBytes := func(v goja.Value) (*goja.Object, error) {
		if goja.IsUndefined(v) || goja.IsNull(v) {
			return nil, errors.New("argument must be a string or array-like")
		}
		ctor := vm.Get("Uint8Array")
		if _, ok := v.Export().(string); ok {
			return vm.New(ctor, vm.ToValue(vm.NewArrayBuffer([]byte(v.String()))))
		}
		return vm.New(ctor, v)
	}

	_ = buffer.Set("from", func(call goja.FunctionCall) goja.Value {
		out, err := toBytes(call.Argument(0))
		if err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		return out
	})
	_ = buffer.Set("alloc", func(call goja.FunctionCall) goja.Value {
		out, err := vm.New(vm.Get("Uint8Array"), call.Argument(0))
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return out
	})
	_ = buffer.Set("isBuffer", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(vm.InstanceOf(call.Argument(0), vm.Get("Uint8Array").ToObject(vm)))
	})
	return buffer
}

// processShim mirrors the shape of a node process object with fixed values.
func (s *Sandbox) processShim() *goja.Object {
	vm := s.vm
	process := vm.NewObject()
	_ = process.Set("env", vm.NewObject())
	_ = process.Set("argv", vm.NewArray())
	_ = process.Set("platform", "linux")
	_ = process.Set("version", "v18.19.0")
	versions := vm.NewObject()
	_ = versions.Set("node", "18.19.0")
	_ = process.Set("versions", versions)
	_ = process.Set("cwd", func(goja.FunctionCall) goja.Value { return vm.ToValue("/") })
	_ = process.Set("nextTick", func(call goja.FunctionCall) goja.Value {
		if fn, ok := goja.AssertFunction(call.Argument(0)); ok {
			if _, err := fn(goja.Undefined(), call.Arguments[1:]...); err != nil {
				panic(vm.NewGoError(err))
			}
		}
		return goja.Undefined()
	})
	return process
}

// consoleShim routes bundle output to the trace log.
func (s *Sandbox) consoleShim() *goja.Object {
	console := s.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug", "trace"} {
		level := level
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				parts = append(parts, a.String())
			}
			s.logger.WithField("console", level).Trace(strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	return console
}

func (s *Sandbox) requireShim(call goja.FunctionCall) goja.Value {
	panic(s.vm.NewGoError(fmt.Errorf("Cannot find module '%s'", call.Argument(0).String())))
}

// Run executes src with the sandbox globals as its only scope. Top level
// declarations become global bindings visible to later runs.
func (s *Sandbox) Run(src string) (goja.Value, error) {
	return s.vm.RunString(src)
}

// Get returns the global binding name, or nil when it does not exist.
func (s *Sandbox) Get(name string) goja.Value {
	return s.vm.Get(name)
}

// Runtime exposes the underlying runtime for value conversions.
func (s *Sandbox) Runtime() *goja.Runtime {
	return s.vm
}

// Try runs f, which may touch sandbox values from Go, and turns a thrown
// JavaScript exception or an interrupt into an error.
func (s *Sandbox) Try(f func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			ie, ok := x.(*goja.InterruptedError)
			if !ok {
				panic(x)
			}
			err = ie
		}
	}()

	if ex := s.vm.Try(f); ex != nil {
		return ex
	}
	return nil
}

// Interrupt aborts the fragment currently running. The sandbox must be
// discarded afterwards. Safe to call from any goroutine.
func (s *Sandbox) Interrupt(reason interface{}) {
	s.vm.Interrupt(reason)
}

// IsInterrupted reports whether err comes from Interrupt.
func IsInterrupted(err error) bool {
	var ie *goja.InterruptedError
	return errors.As(err, &ie)
}
