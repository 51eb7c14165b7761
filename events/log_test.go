package events

import (
	"testing"

	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/require"
)

func TestLogSince(t *testing.T) {
	l := NewLog(0)
	require.Equal(t, uint64(0), l.LastSeq())
	require.Empty(t, l.Since(0, 0))

	l.Emit(IdentityCreated{IdentityNo: 0})
	l.Emit(AddressRemoved{IdentityNo: 0, Chain: 1})
	l.Emit(IdentityRemoved{IdentityNo: 0})

	all := l.Since(0, 0)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Seq)
	require.Equal(t, "IdentityCreated", all[0].Name)
	require.Equal(t, "IdentityRemoved", all[2].Name)

	tail := l.Since(1, 0)
	require.Len(t, tail, 2)
	require.Equal(t, uint64(2), tail[0].Seq)

	limited := l.Since(0, 2)
	require.Len(t, limited, 2)
	require.Equal(t, uint64(2), limited[1].Seq)

	require.Empty(t, l.Since(3, 0))
	require.Equal(t, uint64(3), l.LastSeq())
}

func TestLogCapacity(t *testing.T) {
	l := NewLog(2)
	for i := 0; i < 5; i++ {
		l.Emit(IdentityRemoved{IdentityNo: interfaces.IdentityNo(i)})
	}

	records := l.Since(0, 0)
	require.Len(t, records, 2)
	require.Equal(t, uint64(4), records[0].Seq)
	require.Equal(t, uint64(5), records[1].Seq)
	require.Equal(t, IdentityRemoved{IdentityNo: 4}, records[1].Event)
	require.Equal(t, uint64(5), l.LastSeq())
}

func TestMulti(t *testing.T) {
	var got []string
	first := EmitterFunc(func(ev Event) { got = append(got, "first:"+ev.EventName()) })
	second := EmitterFunc(func(ev Event) { got = append(got, "second:"+ev.EventName()) })

	Multi{first, second, Discard}.Emit(ChainRemoved{ChainID: 3})
	require.Equal(t, []string{"first:ChainRemoved", "second:ChainRemoved"}, got)
}
