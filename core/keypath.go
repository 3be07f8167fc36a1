package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// machineEpsilon is the float64 epsilon; numbers closer than this are equal.
const machineEpsilon = 0x1p-52

// GetState resolves a dot separated key path (e.g. "theme.is_dark") against root.
//
// An empty key returns a copy of root. Each segment addresses an object key
// exactly; a segment that is an unsigned integer without leading zeros
// addresses an array element. Resolution never fails: a missing segment or a
// scalar in the middle of the path yields (nil, false).
func GetState(root Value, key string) (Value, bool) {
	if root == nil {
		return nil, false
	}
	if key == "" {
		return root.Clone(), true
	}

	cur := gjson.ParseBytes(root)
	for _, seg := range strings.Split(key, ".") {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return Value(cur.Raw), true
}

func child(parent gjson.Result, seg string) (gjson.Result, bool) {
	var (
		found gjson.Result
		ok    bool
	)
	switch {
	case parent.IsObject():
		// Keep iterating so the last duplicate key wins, like a decoded map would.
		parent.ForEach(func(k, v gjson.Result) bool {
			if k.Str == seg {
				found, ok = v, true
			}
			return true
		})
	case parent.IsArray():
		idx, valid := parseIndex(seg)
		if !valid {
			return found, false
		}
		i := 0
		parent.ForEach(func(_, v gjson.Result) bool {
			if i == idx {
				found, ok = v, true
				return false
			}
			i++
			return true
		})
	}
	return found, ok
}

func parseIndex(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StatesEqual performs a recursive structural comparison of two values.
//
//   - null, booleans and strings compare by value
//   - numbers compare as integers when both are integral, otherwise as floats
//     within machine epsilon, which absorbs float round-trip noise
//   - arrays compare element-wise in order
//   - objects compare by key set and per-key value, ignoring key order
//   - any kind mismatch is unequal
//
// Absent (nil) values compare like null.
func StatesEqual(a, b Value) bool {
	return resultsEqual(gjson.ParseBytes(a), gjson.ParseBytes(b))
}

func resultsEqual(a, b gjson.Result) bool {
	switch a.Type {
	case gjson.Null, gjson.True, gjson.False:
		return a.Type == b.Type
	case gjson.String:
		return b.Type == gjson.String && a.Str == b.Str
	case gjson.Number:
		return b.Type == gjson.Number && numbersEqual(a, b)
	case gjson.JSON:
		switch {
		case a.IsArray():
			return b.IsArray() && arraysEqual(a, b)
		case a.IsObject():
			return b.IsObject() && objectsEqual(a, b)
		}
	}
	return false
}

func numbersEqual(a, b gjson.Result) bool {
	ai, aerr := strconv.ParseInt(a.Raw, 10, 64)
	bi, berr := strconv.ParseInt(b.Raw, 10, 64)
	if aerr == nil && berr == nil {
		return ai == bi
	}
	return math.Abs(a.Num-b.Num) < machineEpsilon
}

func arraysEqual(a, b gjson.Result) bool {
	as, bs := a.Array(), b.Array()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !resultsEqual(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func objectsEqual(a, b gjson.Result) bool {
	am, bm := objectMap(a), objectMap(b)
	if len(am) != len(bm) {
		return false
	}
	for k, av := range am {
		bv, ok := bm[k]
		if !ok || !resultsEqual(av, bv) {
			return false
		}
	}
	return true
}

func objectMap(r gjson.Result) map[string]gjson.Result {
	m := make(map[string]gjson.Result)
	r.ForEach(func(k, v gjson.Result) bool {
		m[k.Str] = v
		return true
	})
	return m
}

// StateChanged reports whether the value at key differs between old and new.
// Absent on both sides is unchanged; absent on one side is a change.
func StateChanged(oldState, newState Value, key string) bool {
	o, oOK := GetState(oldState, key)
	n, nOK := GetState(newState, key)
	switch {
	case oOK && nOK:
		return !StatesEqual(o, n)
	case !oOK && !nOK:
		return false
	default:
		return true
	}
}

// SetState returns a copy of root with v written at key. Missing intermediate
// objects are created. An empty key replaces the whole document.
func SetState(root Value, key string, v Value) (Value, error) {
	if v == nil {
		v = Null
	}
	if key == "" {
		return v.Clone(), nil
	}
	if root == nil {
		root = Value("{}")
	}
	out, err := sjson.SetRawBytes(root.Clone(), escapePath(key), v)
	if err != nil {
		return nil, NewSerializationError(err.Error())
	}
	return Value(out), nil
}

// escapePath escapes path syntax characters inside each segment so that keys
// are matched literally; the dots between segments stay separators.
func escapePath(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '\\', '*', '?', '#', '@', '|', '!', ':':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
