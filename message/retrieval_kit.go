package message

import (
	"sort"

	"xdao.co/precore/envelope"
	"xdao.co/precore/ids"
	"xdao.co/precore/pre"
)

// RetrievalKit names a capsule and the nodes already asked to re-encrypt
// it, so a requester does not query the same node twice.
type RetrievalKit struct {
	Capsule pre.Capsule
	// sorted, unique; nil when empty
	queried []ids.Address
}

func normalizeAddresses(addrs []ids.Address) []ids.Address {
	if len(addrs) == 0 {
		return nil
	}
	out := append([]ids.Address(nil), addrs...)
	sort.Slice(out, func(i, j int) bool { return ids.Compare(out[i], out[j]) < 0 })
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// NewRetrievalKit returns a kit for capsule with addrs already queried.
func NewRetrievalKit(capsule pre.Capsule, addrs ...ids.Address) RetrievalKit {
	return RetrievalKit{Capsule: capsule, queried: normalizeAddresses(addrs)}
}

// RetrievalKitFromMessageKit starts a kit for the message kit's capsule
// with no nodes queried.
func RetrievalKitFromMessageKit(mk MessageKit) RetrievalKit {
	return RetrievalKit{Capsule: mk.Capsule}
}

// Record returns a kit that additionally lists addrs. k is unchanged.
func (k RetrievalKit) Record(addrs ...ids.Address) RetrievalKit {
	merged := make([]ids.Address, 0, len(k.queried)+len(addrs))
	merged = append(merged, k.queried...)
	merged = append(merged, addrs...)
	return RetrievalKit{Capsule: k.Capsule, queried: normalizeAddresses(merged)}
}

// QueriedAddresses returns the queried nodes in ascending order.
func (k RetrievalKit) QueriedAddresses() []ids.Address {
	return append([]ids.Address(nil), k.queried...)
}

// HasQueried reports whether addr has been recorded.
func (k RetrievalKit) HasQueried(addr ids.Address) bool {
	i := sort.Search(len(k.queried), func(i int) bool { return ids.Compare(k.queried[i], addr) >= 0 })
	return i < len(k.queried) && k.queried[i] == addr
}

// Len returns the number of queried nodes.
func (k RetrievalKit) Len() int { return len(k.queried) }

func (RetrievalKit) Brand() envelope.Brand     { return brandRetrievalKit }
func (RetrievalKit) Version() envelope.Version { return v1 }

func (k RetrievalKit) MarshalUnversioned() []byte {
	b := &envelope.Builder{}
	b.Bytes(1, k.Capsule[:])
	for _, a := range k.queried {
		b.Bytes(2, a[:])
	}
	return b.Finish()
}

func (k *RetrievalKit) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	var (
		capsule pre.Capsule
		addrs   []ids.Address
	)
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		switch f.Num {
		case 1:
			return f.Fixed(capsule[:])
		case 2:
			var a ids.Address
			if err := f.Fixed(a[:]); err != nil {
				return err
			}
			addrs = append(addrs, a)
		}
		return nil
	}, 2)
	if err != nil {
		return err
	}
	if err := seen.Require(1); err != nil {
		return err
	}
	*k = NewRetrievalKit(capsule, addrs...)
	return nil
}
