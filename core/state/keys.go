package state

import "encoding/binary"

var (
	poolsLengthKey     = []byte("sar/poolslen")
	poolPrefix         = []byte("sar/pool/")
	userPrefix         = []byte("sar/user/")
	lockCountPrefix    = []byte("sar/lockcount/")
	rewarderFailPrefix = []byte("sar/rewarderfail/")
)

func appendPoolID(buf []byte, poolID uint64) []byte {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], poolID)
	return append(buf, id[:]...)
}

func poolKey(poolID uint64) []byte {
	return appendPoolID(append([]byte(nil), poolPrefix...), poolID)
}

func userKey(poolID uint64, addr [20]byte) []byte {
	buf := appendPoolID(append([]byte(nil), userPrefix...), poolID)
	buf = append(buf, '/')
	return append(buf, addr[:]...)
}

func lockCountKey(addr [20]byte) []byte {
	return append(append([]byte(nil), lockCountPrefix...), addr[:]...)
}

func rewarderFailKey(poolID uint64, addr [20]byte) []byte {
	buf := appendPoolID(append([]byte(nil), rewarderFailPrefix...), poolID)
	buf = append(buf, '/')
	return append(buf, addr[:]...)
}
