package presenter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
)

func applicationFilter(search, status string) Filter[application.Application] {
	return Filter[application.Application]{
		Search:   search,
		Status:   status,
		Keys:     func(a application.Application) []string { return []string{a.FullName, a.NIN, a.Reference} },
		StatusOf: func(a application.Application) string { return string(a.Status) },
	}
}

func TestFilter(t *testing.T) {
	apps := []application.Application{
		{ID: 1, FullName: "Amina Bello", NIN: "12345678901", Reference: "APP-1", Status: lifecycle.StatusPending},
		{ID: 2, FullName: "Chidi Okafor", NIN: "10987654321", Reference: "APP-2", Status: lifecycle.StatusApproved},
		{ID: 3, FullName: "Ibrahim Musa Sani", NIN: "22233344455", Reference: "APP-3", Status: lifecycle.StatusPending},
	}

	assert.Len(t, applicationFilter("", "").Apply(apps), 3)
	assert.Equal(t, uint(1), applicationFilter("  amina ", "").Apply(apps)[0].ID)
	assert.Len(t, applicationFilter("1098", "").Apply(apps), 1)
	assert.Len(t, applicationFilter("app-", "pending").Apply(apps), 2)
	assert.Empty(t, applicationFilter("chidi", "pending").Apply(apps))
	assert.NotNil(t, applicationFilter("nobody", "").Apply(apps))
}

func TestPagination(t *testing.T) {
	p := NewPagination(25)
	p.SetTotal(95)

	assert.Equal(t, 4, p.TotalPages())
	first, last := p.Range()
	assert.EqualValues(t, 1, first)
	assert.EqualValues(t, 25, last)
	assert.False(t, p.HasPrev())
	assert.ErrorIs(t, p.Prev(), ErrPageOutOfRange)

	require.NoError(t, p.Goto(4))
	first, last = p.Range()
	assert.EqualValues(t, 76, first)
	assert.EqualValues(t, 95, last)
	assert.False(t, p.HasNext())
	assert.ErrorIs(t, p.Next(), ErrPageOutOfRange)
	assert.ErrorIs(t, p.Goto(5), ErrPageOutOfRange)
	assert.ErrorIs(t, p.Goto(0), ErrPageOutOfRange)
	assert.Equal(t, 4, p.Page)
	assert.Equal(t, "Showing 76-95 of 95", p.Summary())

	require.NoError(t, p.Prev())
	assert.Equal(t, 3, p.Page)
}

func TestPaginationPageSizeAndShrink(t *testing.T) {
	p := NewPagination(0)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	p.SetTotal(95)
	require.NoError(t, p.Goto(10))

	require.NoError(t, p.SetPageSize(50))
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 2, p.TotalPages())
	assert.Error(t, p.SetPageSize(7))

	require.NoError(t, p.Next())
	p.SetTotal(30)
	assert.Equal(t, 1, p.Page)

	p.SetTotal(0)
	assert.Equal(t, 0, p.TotalPages())
	first, last := p.Range()
	assert.Zero(t, first)
	assert.Zero(t, last)
	assert.NoError(t, p.Goto(1))
}

func TestTableRender(t *testing.T) {
	tbl := NewTable("ID", "NAME", "STATUS")
	tbl.Add(1, "Amina Bello", lifecycle.StatusPending)
	tbl.Add(12, "Chidi Okafor", lifecycle.StatusApproved)

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  NAME          STATUS", lines[0])
	assert.Equal(t, "1   Amina Bello   pending", lines[1])
	assert.Equal(t, "12  Chidi Okafor  approved", lines[2])
}
