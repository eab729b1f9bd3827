package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridscan/gridscan/common"
	"github.com/gridscan/gridscan/errors"
)

func fakeTestSchema() *common.ArrayInfo {
	return &common.ArrayInfo{
		Name:   "cells",
		Sparse: true,
		Columns: []common.ColumnInfo{
			{Name: "x", ColumnType: common.Int32ColumnType, IsDimension: true},
			{Name: "a", ColumnType: common.Int64ColumnType},
		},
	}
}

func TestOpenUnknownArray(t *testing.T) {
	engine := NewFakeEngine()
	_, err := engine.OpenArray("nope")
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.StorageError))
}

func TestNonEmptyDomainComputedFromRows(t *testing.T) {
	engine := NewFakeEngine()
	arr := engine.CreateArray(fakeTestSchema())
	arr.Insert(
		map[string]interface{}{"x": int64(7), "a": int64(1)},
		map[string]interface{}{"x": int64(3), "a": int64(2)},
		map[string]interface{}{"x": int64(9), "a": int64(3)},
	)
	domain, err := arr.NonEmptyDomain()
	require.NoError(t, err)
	require.Equal(t, common.Bounds{Min: int64(3), Max: int64(9)}, domain["x"])
}

func TestRangesOnSameDimensionAreUnioned(t *testing.T) {
	engine := NewFakeEngine()
	arr := engine.CreateArray(fakeTestSchema())
	for i := 1; i <= 10; i++ {
		arr.Insert(map[string]interface{}{"x": int64(i), "a": int64(i * 10)})
	}
	query, err := arr.NewQuery()
	require.NoError(t, err)
	require.NoError(t, query.AddRange(0, int64(1), int64(2)))
	require.NoError(t, query.AddRange(0, int64(8), int64(9)))

	data := make([]byte, 10*4)
	require.NoError(t, query.SetBuffer("x", data))
	status, err := query.Submit()
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)
	require.Equal(t, int64(4), query.ResultBufferElements()["x"].Values)
}

func TestConditionFiltering(t *testing.T) {
	engine := NewFakeEngine()
	arr := engine.CreateArray(fakeTestSchema())
	for i := 1; i <= 10; i++ {
		arr.Insert(map[string]interface{}{"x": int64(i), "a": int64(i)})
	}
	query, err := arr.NewQuery()
	require.NoError(t, err)
	require.NoError(t, query.SetCondition(And(GE("a", int64(3)), LE("a", int64(5)))))

	data := make([]byte, 10*4)
	require.NoError(t, query.SetBuffer("x", data))
	status, err := query.Submit()
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)
	require.Equal(t, int64(3), query.ResultBufferElements()["x"].Values)
}

func TestIncompleteSubmissionsResume(t *testing.T) {
	engine := NewFakeEngine()
	arr := engine.CreateArray(fakeTestSchema())
	for i := 1; i <= 10; i++ {
		arr.Insert(map[string]interface{}{"x": int64(i), "a": int64(i)})
	}
	query, err := arr.NewQuery()
	require.NoError(t, err)
	// room for 4 records per submission
	data := make([]byte, 4*4)
	require.NoError(t, query.SetBuffer("x", data))

	var total int64
	for round := 0; ; round++ {
		status, err := query.Submit()
		require.NoError(t, err)
		n := query.ResultBufferElements()["x"].Values
		total += n
		if status == StatusCompleted {
			require.Equal(t, 2, round)
			break
		}
		require.Equal(t, StatusIncomplete, status)
		require.Equal(t, int64(4), n)
	}
	require.Equal(t, int64(10), total)
}

func TestIncompleteWithZeroRecordsWhenCellTooLarge(t *testing.T) {
	schema := &common.ArrayInfo{
		Name:   "docs",
		Sparse: true,
		Columns: []common.ColumnInfo{
			{Name: "x", ColumnType: common.Int64ColumnType, IsDimension: true},
			{Name: "body", ColumnType: common.StringColumnType, VarLen: true},
		},
	}
	engine := NewFakeEngine()
	arr := engine.CreateArray(schema)
	arr.Insert(map[string]interface{}{"x": int64(1), "body": "this does not fit"})

	query, err := arr.NewQuery()
	require.NoError(t, err)
	require.NoError(t, query.SetBuffer("x", make([]byte, 8)))
	require.NoError(t, query.SetBufferVar("body", make([]uint64, 2), make([]byte, 4)))

	status, err := query.Submit()
	require.NoError(t, err)
	require.Equal(t, StatusIncomplete, status)
	require.Equal(t, int64(1), query.ResultBufferElements()["body"].Offsets)

	// rebinding larger buffers lets the record through
	require.NoError(t, query.SetBufferVar("body", make([]uint64, 2), make([]byte, 64)))
	status, err = query.Submit()
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)
	require.Equal(t, int64(2), query.ResultBufferElements()["body"].Offsets)
}

func TestVarLenOffsetsCarrySentinel(t *testing.T) {
	schema := &common.ArrayInfo{
		Name:   "docs",
		Sparse: true,
		Columns: []common.ColumnInfo{
			{Name: "x", ColumnType: common.Int64ColumnType, IsDimension: true},
			{Name: "body", ColumnType: common.StringColumnType, VarLen: true},
		},
	}
	engine := NewFakeEngine()
	arr := engine.CreateArray(schema)
	arr.Insert(
		map[string]interface{}{"x": int64(1), "body": "ab"},
		map[string]interface{}{"x": int64(2), "body": "cde"},
	)

	query, err := arr.NewQuery()
	require.NoError(t, err)
	offsets := make([]uint64, 3)
	data := make([]byte, 16)
	require.NoError(t, query.SetBuffer("x", make([]byte, 16)))
	require.NoError(t, query.SetBufferVar("body", offsets, data))

	status, err := query.Submit()
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)
	require.Equal(t, []uint64{0, 2, 5}, offsets)
	require.Equal(t, "abcde", string(data[:5]))
}
