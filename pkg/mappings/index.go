package mappings

import "fmt"

const keySep = ";"

// Index is an immutable, pivot-keyed view over a set of Records.
// It is safe for concurrent reads.
type Index struct {
	pivot   Pivot
	records *Records
	classes map[string]ClassMapping
	methods map[string]MethodMapping
	fields  map[string]FieldMapping
}

// Stats is a summary of an Index's size
type Stats struct {
	Pivot   string
	Classes int
	Methods int
	Fields  int
}

// NewIndex keys every record in recs through pivot.
//
// Records that land on the same key are accepted only when they are identical;
// two distinct records under one key fail with ErrDuplicateKey.
func NewIndex(pivot Pivot, recs *Records) (*Index, error) {
	if recs == nil {
		recs = &Records{}
	}

	idx := &Index{
		pivot:   pivot,
		records: recs,
		classes: make(map[string]ClassMapping, len(recs.Classes)),
		methods: make(map[string]MethodMapping, len(recs.Methods)),
		fields:  make(map[string]FieldMapping, len(recs.Fields)),
	}

	for _, c := range recs.Classes {
		key := pivot.Class(c)
		if prev, ok := idx.classes[key]; ok && prev != c {
			return nil, fmt.Errorf("%w: class %q (%s index): %+v and %+v", ErrDuplicateKey, key, pivot.Name(), prev, c)
		}
		idx.classes[key] = c
	}

	for _, m := range recs.Methods {
		name, sig := pivot.Method(m)
		key := memberKey(pivot.Class(m.Owner), name+sig)
		if prev, ok := idx.methods[key]; ok && prev != m {
			return nil, fmt.Errorf("%w: method %q (%s index): %+v and %+v", ErrDuplicateKey, key, pivot.Name(), prev, m)
		}
		idx.methods[key] = m
	}

	for _, f := range recs.Fields {
		key := memberKey(pivot.Class(f.Owner), pivot.Field(f))
		if prev, ok := idx.fields[key]; ok && prev != f {
			return nil, fmt.Errorf("%w: field %q (%s index): %+v and %+v", ErrDuplicateKey, key, pivot.Name(), prev, f)
		}
		idx.fields[key] = f
	}

	return idx, nil
}

func memberKey(owner, member string) string {
	return owner + keySep + member
}

// Pivot returns the pivot the index is keyed on
func (i *Index) Pivot() Pivot {
	return i.pivot
}

// Records returns the records the index was built from
func (i *Index) Records() *Records {
	return i.records
}

// Stats returns the number of keyed records
func (i *Index) Stats() Stats {
	return Stats{
		Pivot:   i.pivot.Name(),
		Classes: len(i.classes),
		Methods: len(i.methods),
		Fields:  len(i.fields),
	}
}

// Class looks up a class by its pivot name
func (i *Index) Class(name string) (ClassMapping, bool) {
	c, ok := i.classes[name]
	return c, ok
}

// Method looks up a method by its owner's pivot name and its pivot name and signature
func (i *Index) Method(owner, name, signature string) (MethodMapping, bool) {
	m, ok := i.methods[memberKey(owner, name+signature)]
	return m, ok
}

// HasMethod reports whether owner declares name+signature in the index
func (i *Index) HasMethod(owner, name, signature string) bool {
	_, ok := i.methods[memberKey(owner, name+signature)]
	return ok
}

// Field looks up a field by its owner's pivot name and its pivot name
func (i *Index) Field(owner, name string) (FieldMapping, bool) {
	f, ok := i.fields[memberKey(owner, name)]
	return f, ok
}
