package emit

import (
	"bytes"
	"encoding/json"
)

// orderedMap renders as a JSON object whose keys appear in insertion
// order. encoding/json always sorts map[string]T keys alphabetically, which
// would violate the "symbol-table insertion order" guarantee this package
// must uphold for every nested object — no ordered-JSON-object library was
// available anywhere in the retrieved pack, so this is hand-rolled rather
// than adopted.
type orderedMap struct {
	keys   []string
	values []interface{}
}

func newOrderedMap() *orderedMap {
	return &orderedMap{}
}

func (m *orderedMap) Set(key string, value interface{}) {
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

func (m *orderedMap) Len() int { return len(m.keys) }

func (m *orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(m.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
