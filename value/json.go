package value

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// JSON encoding is kind-tagged so that persisted register values round-trip
// exactly. Ints encode as decimal strings (no float64 precision loss) and
// floats use the shortest representation that parses back to the same bits.

type valueJSON struct {
	Int    *string      `json:"int,omitempty"`
	Float  *string      `json:"float,omitempty"`
	Bool   *bool        `json:"bool,omitempty"`
	String *string      `json:"string,omitempty"`
	Tuple  *[]Value     `json:"tuple,omitempty"`
	Record *[]fieldJSON `json:"record,omitempty"`
}

type fieldJSON struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var enc valueJSON
	switch v.kind {
	case KindInt:
		s := strconv.FormatInt(v.i, 10)
		enc.Int = &s
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		enc.Float = &s
	case KindBool:
		b := v.b
		enc.Bool = &b
	case KindString:
		s := v.s
		enc.String = &s
	case KindTuple:
		elems := make([]Value, len(v.elems))
		copy(elems, v.elems)
		enc.Tuple = &elems
	case KindRecord:
		fields := make([]fieldJSON, len(v.fields))
		for i, f := range v.fields {
			fields[i] = fieldJSON{Name: f.Name, Value: f.Value}
		}
		enc.Record = &fields
	}
	return json.Marshal(enc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var dec valueJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	switch {
	case dec.Int != nil:
		i, err := strconv.ParseInt(*dec.Int, 10, 64)
		if err != nil {
			return fmt.Errorf("value: invalid int %q: %w", *dec.Int, err)
		}
		*v = Int(i)
	case dec.Float != nil:
		f, err := strconv.ParseFloat(*dec.Float, 64)
		if err != nil {
			return fmt.Errorf("value: invalid float %q: %w", *dec.Float, err)
		}
		*v = Float(f)
	case dec.Bool != nil:
		*v = Bool(*dec.Bool)
	case dec.String != nil:
		*v = Str(*dec.String)
	case dec.Tuple != nil:
		*v = TupleOf(*dec.Tuple...)
	case dec.Record != nil:
		fields := make([]Field, len(*dec.Record))
		for i, f := range *dec.Record {
			fields[i] = Field{Name: f.Name, Value: f.Value}
		}
		*v = RecordOf(fields...)
	default:
		return fmt.Errorf("value: unrecognized encoding %s", string(data))
	}
	return nil
}
