package main

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

var errUnsupportedType = errors.New("unsupported argument type")

// parseArg converts the textual form of an ABI argument into the Go value the
// abi package packs for typ. Arrays are written as "[a, b, c]".
func parseArg(typ abi.Type, s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	switch typ.T {
	case abi.UintTy, abi.IntTy:
		if typ.Size != 256 {
			return nil, fmt.Errorf("%w: %s", errUnsupportedType, typ)
		}
		v, ok := math.ParseBig256(s)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return v, nil
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.StringTy:
		return s, nil
	case abi.BytesTy:
		return hexutil.Decode(s)
	case abi.FixedBytesTy:
		raw, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(raw) != typ.Size {
			return nil, fmt.Errorf("%d bytes for %s", len(raw), typ)
		}
		v := reflect.New(typ.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(raw))
		return v.Interface(), nil
	case abi.SliceTy:
		if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("array %q not enclosed in brackets", s)
		}
		var elems []string
		if inner := strings.TrimSpace(s[1 : len(s)-1]); inner != "" {
			elems = strings.Split(inner, ",")
		}
		out := reflect.MakeSlice(typ.GetType(), len(elems), len(elems))
		for i, e := range elems {
			v, err := parseArg(*typ.Elem, e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(v))
		}
		return out.Interface(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedType, typ)
	}
}
