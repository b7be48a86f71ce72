// Package handlers implements sample targets for the task executor. Every
// handler speaks the Solidity ABI: calldata is a four byte selector followed by
// ABI encoded arguments, and return data is ABI encoded.
package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clydemeng/taskexec/core/vm"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrUnknownHandler is returned by New for an unregistered handler name.
var ErrUnknownHandler = errors.New("unknown handler")

// RevertError is returned by a handler that rejects the call. Reason is
// surfaced unchanged to the batch caller.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

type method func(env *vm.Env, args []interface{}) (*vm.Output, []interface{}, error)

// contract dispatches ABI encoded calldata to Go methods.
type contract struct {
	name    string
	abi     abi.ABI
	methods map[string]method
	shapes  map[vm.Selector]vm.Shape
}

func newContract(name, definition string, methods map[string]method) *contract {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("handlers: invalid %s abi: %v", name, err))
	}
	c := &contract{
		name:    name,
		abi:     parsed,
		methods: methods,
		shapes:  make(map[vm.Selector]vm.Shape),
	}
	for _, m := range parsed.Methods {
		if _, ok := methods[m.Name]; !ok {
			panic(fmt.Sprintf("handlers: %s.%s not implemented", name, m.Name))
		}
		if shape := shapeOf(m.Inputs); len(shape) > 0 {
			c.shapes[vm.SelectorOf(m.ID)] = shape
		}
	}
	return c
}

// shapeOf returns the head words of args holding arrays of single word
// elements. Every argument is assumed to occupy exactly one head word.
func shapeOf(args abi.Arguments) vm.Shape {
	var shape vm.Shape
	for i, arg := range args {
		if arg.Type.T != abi.SliceTy {
			continue
		}
		switch arg.Type.Elem.T {
		case abi.UintTy, abi.IntTy, abi.AddressTy, abi.BoolTy, abi.FixedBytesTy:
			shape = append(shape, uint8(i))
		}
	}
	return shape
}

// Run implements vm.Target.
func (c *contract) Run(env *vm.Env, input []byte) (*vm.Output, error) {
	m, err := c.abi.MethodById(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	args, err := m.Inputs.Unpack(input[vm.SelectorSize:])
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, m.Name, err)
	}
	out, rets, err := c.methods[m.Name](env, args)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = new(vm.Output)
	}
	if out.Data, err = m.Outputs.Pack(rets...); err != nil {
		return nil, fmt.Errorf("%s.%s: packing result: %w", c.name, m.Name, err)
	}
	return out, nil
}

// Shape implements vm.Shaper.
func (c *contract) Shape(sel vm.Selector) vm.Shape {
	return c.shapes[sel]
}

// Pack encodes a call of the named method.
func (c *contract) Pack(name string, args ...interface{}) ([]byte, error) {
	return c.abi.Pack(name, args...)
}

// Unpack decodes the return data of the named method.
func (c *contract) Unpack(name string, data []byte) ([]interface{}, error) {
	return c.abi.Unpack(name, data)
}

// Method returns the ABI definition of the named method.
func (c *contract) Method(name string) (abi.Method, bool) {
	m, ok := c.abi.Methods[name]
	return m, ok
}

// Selector returns the selector of the named method, or the zero selector
// when the method is unknown.
func (c *contract) Selector(name string) vm.Selector {
	m, ok := c.abi.Methods[name]
	if !ok {
		return vm.Selector{}
	}
	return vm.SelectorOf(m.ID)
}

// New returns a fresh handler by name. Known names are "math", "token",
// "funds" and "nested".
func New(name string) (vm.Target, error) {
	switch name {
	case "math":
		return NewMath(), nil
	case "token":
		return NewToken(), nil
	case "funds":
		return NewFunds(), nil
	case "nested":
		return NewNested(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHandler, name)
	}
}
