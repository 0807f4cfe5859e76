package driver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soundprediction/studygraph/pkg/types"
)

// propKind is the column type of a property in backends with a fixed schema.
type propKind string

const (
	kindString  propKind = "STRING"
	kindInt     propKind = "INT64"
	kindStrings propKind = "STRING[]"
	kindVector  propKind = "FLOAT[]"
	kindTime    propKind = "TIMESTAMP"
)

type propertySpec struct {
	Name string
	Kind propKind
}

// Properties shared by every node.
var baseNodeProperties = []propertySpec{
	{"uuid", kindString},
	{"created_at", kindTime},
	{"updated_at", kindTime},
}

// nodeSchema lists the properties of every label beyond baseNodeProperties.
var nodeSchema = map[string][]propertySpec{
	types.LabelSubject: {
		{"name", kindString},
		{"description", kindString},
	},
	types.LabelTopic: {
		{"name", kindString},
		{"subject", kindString},
		{"description", kindString},
		{"difficulty_level", kindInt},
	},
	types.LabelQuestion: {
		{"text", kindString},
		{"year", kindInt},
		{"paper_set", kindString},
		{"options", kindStrings},
		{"answer", kindString},
		{"difficulty", kindInt},
		{"marks", kindInt},
		{"embedding", kindVector},
	},
	types.LabelChunk: {
		{"text", kindString},
		{"source_file", kindString},
		{"source_type", kindString},
		{"page_number", kindInt},
		{"chunk_index", kindInt},
		{"embedding", kindVector},
	},
	types.LabelConcept: {
		{"name", kindString},
		{"topic", kindString},
		{"subject", kindString},
		{"explanation", kindString},
	},
	types.LabelUser: {
		{"id", kindString},
	},
}

type edgeSpec struct {
	From  string
	To    string
	Props []propertySpec
}

var edgeSchema = map[string]edgeSpec{
	types.EdgeHasTopic:    {From: types.LabelSubject, To: types.LabelTopic},
	types.EdgeHasQuestion: {From: types.LabelTopic, To: types.LabelQuestion},
	types.EdgeExplainedBy: {From: types.LabelTopic, To: types.LabelChunk},
	types.EdgeHasConcept:  {From: types.LabelTopic, To: types.LabelConcept},
	types.EdgeAttempted: {
		From: types.LabelUser,
		To:   types.LabelQuestion,
		Props: []propertySpec{
			{"attempt_count", kindInt},
			{"correct_count", kindInt},
			{"first_attempt", kindTime},
			{"last_attempt", kindTime},
			{"last_correct", kindTime},
		},
	},
}

// nodeProperties returns every property name of label, base properties first.
func nodeProperties(label string) []string {
	specs := append(append([]propertySpec{}, baseNodeProperties...), nodeSchema[label]...)
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// edgeProperties returns the property names of an edge type.
func edgeProperties(edgeType string) []string {
	specs := edgeSchema[edgeType].Props
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

type indexSpec struct {
	Name       string
	Label      string
	Properties []string
}

// propertyIndexes are the lookup indexes created by CreateIndices.
var propertyIndexes = []indexSpec{
	{"subject_name", types.LabelSubject, []string{"name"}},
	{"topic_name", types.LabelTopic, []string{"name"}},
	{"topic_subject", types.LabelTopic, []string{"subject"}},
	{"question_year", types.LabelQuestion, []string{"year"}},
	{"question_difficulty", types.LabelQuestion, []string{"difficulty"}},
	{"question_uuid", types.LabelQuestion, []string{"uuid"}},
	{"chunk_source", types.LabelChunk, []string{"source_file"}},
	{"chunk_uuid", types.LabelChunk, []string{"uuid"}},
	{"concept_name", types.LabelConcept, []string{"name"}},
}

// uniqueConstraints back the merge-by-key identities of the data model.
var uniqueConstraints = []indexSpec{
	{"subject_name_unique", types.LabelSubject, []string{"name"}},
	{"topic_unique", types.LabelTopic, []string{"name", "subject"}},
	{"concept_unique", types.LabelConcept, []string{"name", "topic", "subject"}},
	{"user_id_unique", types.LabelUser, []string{"id"}},
}

// sortedSchemaLabels returns every label with a schema, in lexical order.
func sortedSchemaLabels() []string {
	labels := make([]string, 0, len(nodeSchema))
	for label := range nodeSchema {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// sortedEdgeTypes returns every edge type with a schema, in lexical order.
func sortedEdgeTypes() []string {
	edgeTypes := make([]string, 0, len(edgeSchema))
	for t := range edgeSchema {
		edgeTypes = append(edgeTypes, t)
	}
	sort.Strings(edgeTypes)
	return edgeTypes
}

// schemaStatements renders the node and rel tables for every label and
// edge type of the data model.
func schemaStatements() []string {
	var statements []string
	for _, label := range sortedSchemaLabels() {
		specs := append(append([]propertySpec{}, baseNodeProperties...), nodeSchema[label]...)
		cols := make([]string, len(specs))
		for i, s := range specs {
			cols[i] = fmt.Sprintf("%s %s", s.Name, s.Kind)
			if s.Name == "uuid" {
				cols[i] += " PRIMARY KEY"
			}
		}
		statements = append(statements, fmt.Sprintf("CREATE NODE TABLE IF NOT EXISTS %s (%s)", label, strings.Join(cols, ", ")))
	}
	for _, edgeType := range sortedEdgeTypes() {
		spec := edgeSchema[edgeType]
		cols := []string{fmt.Sprintf("FROM %s TO %s", spec.From, spec.To)}
		for _, p := range spec.Props {
			cols = append(cols, fmt.Sprintf("%s %s", p.Name, p.Kind))
		}
		statements = append(statements, fmt.Sprintf("CREATE REL TABLE IF NOT EXISTS %s (%s)", edgeType, strings.Join(cols, ", ")))
	}
	return statements
}
