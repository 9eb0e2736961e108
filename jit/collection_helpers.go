package jit

// Adapters between the register-passing runtime-helper ABI (jit/helpers.go:
// every argument/result is a single machine word) and collections.go's
// Go-string-keyed API. Field/variant names arrive from generated code as
// heap string pointers (the same representation every other String value
// uses), so these wrappers decode them with GoString before forwarding.

func newListHelper(count int64, base uintptr) uint64 {
	items := ptrSliceFromMemU64(base, int(count))
	return NewList(items)
}

func newMapHelper() uint64 { return NewMap() }

func newRecordHelper() uint64 { return NewRecord() }

func newUnionHelper(variantHdr uintptr, payload uint64) uint64 {
	return NewUnion(GoString(variantHdr), payload)
}

func getFieldHelper(handle uint64, nameHdr uintptr) uint64 {
	return GetField(handle, GoString(nameHdr))
}

func setFieldHelper(handle uint64, nameHdr uintptr, v uint64) int64 {
	SetField(handle, GoString(nameHdr), v)
	return 0
}

func isVariantHelper(handle uint64, variantHdr uintptr) int64 {
	if IsVariant(handle, GoString(variantHdr)) {
		return 1
	}
	return 0
}

func unionUnboxHelper(handle uint64) uint64 { return UnionUnbox(handle) }

func getIndexHelper(handle uint64, idx int64) uint64 { return GetIndex(handle, idx) }

func setIndexHelper(handle uint64, idx int64, v uint64) int64 {
	SetIndex(handle, idx, v)
	return 0
}
