package itc

import "fmt"

// IDTreeToJSON converts t into a plain JSON-marshalable value: the leaves
// 0 and 1, or a two-element array [left, right] for a Branch.
func IDTreeToJSON(t IDTree) any {
	switch v := t.(type) {
	case idOne:
		return float64(1)
	case Branch:
		return []any{IDTreeToJSON(v.Left), IDTreeToJSON(v.Right)}
	default:
		return float64(0)
	}
}

// IDTreeFromJSON is the inverse of IDTreeToJSON, operating on the
// any-typed tree encoding/json produces when unmarshaling into any.
func IDTreeFromJSON(v any) (IDTree, error) {
	switch x := v.(type) {
	case float64:
		if x == 0 {
			return Zero, nil
		}
		if x == 1 {
			return One, nil
		}
		return nil, fmt.Errorf("itc: invalid IDTree leaf %v", x)
	case []any:
		if len(x) != 2 {
			return nil, fmt.Errorf("itc: invalid IDTree branch %v", x)
		}
		l, err := IDTreeFromJSON(x[0])
		if err != nil {
			return nil, err
		}
		r, err := IDTreeFromJSON(x[1])
		if err != nil {
			return nil, err
		}
		return Sub(l, r), nil
	default:
		return nil, fmt.Errorf("itc: invalid IDTree value %v", v)
	}
}

// EventTreeToJSON converts e into a plain JSON-marshalable value: a bare
// number for a Leaf, or a three-element array [n, left, right] for a Node.
func EventTreeToJSON(e EventTree) any {
	switch v := e.(type) {
	case Node:
		return []any{float64(v.N), EventTreeToJSON(v.Left), EventTreeToJSON(v.Right)}
	default:
		return float64(e.(Leaf).N)
	}
}

// EventTreeFromJSON is the inverse of EventTreeToJSON.
func EventTreeFromJSON(v any) (EventTree, error) {
	switch x := v.(type) {
	case float64:
		return Leaf{N: uint64(x)}, nil
	case []any:
		if len(x) != 3 {
			return nil, fmt.Errorf("itc: invalid EventTree node %v", x)
		}
		n, ok := x[0].(float64)
		if !ok {
			return nil, fmt.Errorf("itc: invalid EventTree count %v", x[0])
		}
		l, err := EventTreeFromJSON(x[1])
		if err != nil {
			return nil, err
		}
		r, err := EventTreeFromJSON(x[2])
		if err != nil {
			return nil, err
		}
		return Node{N: uint64(n), Left: l, Right: r}, nil
	default:
		return nil, fmt.Errorf("itc: invalid EventTree value %v", v)
	}
}
