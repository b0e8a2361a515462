package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Record is one health sample: the element's own attributes plus any
// projected metadata entries, with column keys in first-set order.
type Record struct {
	keys  []string
	attrs map[string]string
}

// Set stores a key/value pair, tracking first-appearance order. Setting an
// existing key overwrites the value in place, so a metadata entry named like
// a native attribute wins without duplicating the column.
func (r *Record) Set(key, value string) {
	if _, ok := r.attrs[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.attrs[key] = value
}

// Get returns the value for key and whether it is present.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.attrs[key]
	return v, ok
}

// Keys returns the record's column keys in first-set order.
func (r *Record) Keys() []string { return r.keys }

// Parse walks the export's element tree and collects one Record per child of
// the root element. Nested elements directly under a record that carry
// exactly two attributes are projected into the record as
// firstAttrValue -> secondAttrValue (Apple's MetadataEntry key/value shape);
// nested elements with any other attribute count are skipped. Deeper
// descendants (workout events, routes) are ignored.
func Parse(data []byte) ([]Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var records []Record
	depth := 0
	cur := -1
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse export xml: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				r := Record{attrs: make(map[string]string, len(se.Attr))}
				for _, a := range se.Attr {
					r.Set(a.Name.Local, a.Value)
				}
				records = append(records, r)
				cur = len(records) - 1
			case 3:
				if cur >= 0 && len(se.Attr) == 2 {
					records[cur].Set(se.Attr[0].Value, se.Attr[1].Value)
				}
			}
		case xml.EndElement:
			depth--
			if depth < 2 {
				cur = -1
			}
		}
	}
	return records, nil
}
