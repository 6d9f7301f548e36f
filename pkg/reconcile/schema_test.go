package reconcile

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
)

func TestDiffSchemas(t *testing.T) {
	legacy := build(t, fields("id", i64, "score", f64, "active", arrow.FixedWidthTypes.Boolean, "legacy_only", str))
	cloud := build(t, fields("score", i64, "id", i64, "active", str, "extra", str, "another", f64))

	diff := DiffSchemas(legacy, cloud)
	assert.Equal(t, []string{"another", "extra"}, diff.MissingFromLegacy)
	assert.Equal(t, []string{"legacy_only"}, diff.MissingFromCloud)
	assert.Equal(t, []string{"active", "id", "score"}, diff.Common)
	assert.Equal(t, 2, diff.MismatchedTypeCount())
	assert.Equal(t, TypePair{Legacy: "double", Cloud: "int64"}, diff.TypeMismatches["score"])
	assert.Equal(t, TypePair{Legacy: "bool", Cloud: "utf8"}, diff.TypeMismatches["active"])
	assert.NotContains(t, diff.TypeMismatches, "id")

	assert.True(t, diff.IsCommon("id"))
	assert.False(t, diff.IsCommon("extra"))
}

func TestDiffSchemasNoOverlap(t *testing.T) {
	legacy := build(t, fields("employee_id", i64, "full_name", str, "annual_salary", i64, "dept", str))
	cloud := build(t, fields("id", i64, "name", str, "salary", i64, "department", str))

	diff := DiffSchemas(legacy, cloud)
	assert.Empty(t, diff.Common)
	assert.NotNil(t, diff.Common)
	assert.Equal(t, []string{"annual_salary", "dept", "employee_id", "full_name"}, diff.MissingFromCloud)
	assert.Equal(t, []string{"department", "id", "name", "salary"}, diff.MissingFromLegacy)
	assert.Zero(t, diff.MismatchedTypeCount())
}
