package domain

import "strings"

// Field identifies one field of State.
type Field uint8

const (
	FieldTask Field = 1 << iota
	FieldPlan
	FieldDraft
	FieldCritique
	FieldContent
	FieldRevisionNumber
	FieldMaxRevisions
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldTask, "task"},
	{FieldPlan, "plan"},
	{FieldDraft, "draft"},
	{FieldCritique, "critique"},
	{FieldContent, "content"},
	{FieldRevisionNumber, "revision_number"},
	{FieldMaxRevisions, "max_revisions"},
}

func (f Field) String() string {
	for _, fn := range fieldNames {
		if fn.field == f {
			return fn.name
		}
	}
	return "unknown"
}

// FieldSet is a set of fields, used to declare what a step may write.
type FieldSet uint8

// Fields builds a FieldSet.
func Fields(fields ...Field) FieldSet {
	var fs FieldSet
	for _, f := range fields {
		fs |= FieldSet(f)
	}
	return fs
}

// Has reports whether f is in the set.
func (fs FieldSet) Has(f Field) bool {
	return fs&FieldSet(f) != 0
}

// Without returns the fields of fs that are not in other.
func (fs FieldSet) Without(other FieldSet) FieldSet {
	return fs &^ other
}

func (fs FieldSet) String() string {
	var names []string
	for _, fn := range fieldNames {
		if fs.Has(fn.field) {
			names = append(names, fn.name)
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}
