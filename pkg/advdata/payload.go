package advdata

import "encoding/binary"

// DefaultCompanyID is the Bluetooth SIG company identifier carried in the
// first two bytes of every broadcast chunk (Nordic Semiconductor ASA).
const DefaultCompanyID uint16 = 0x0059

// DefaultSentinel fills the final, partial chunk so it is recognizable on a
// sniffer.
const DefaultSentinel byte = 0xEE

// CompanyIDWidth is the size of the little-endian company identifier prefix
// inside each chunk's data.
const CompanyIDWidth = 2

// BroadcastStructures realizes a chunk plan as manufacturer-data AD
// structures. Each chunk's data starts with the little-endian company
// identifier; full chunks are then filled with their one-based index for
// visibility, and the partial remainder chunk with the sentinel byte. The
// result is deterministic for fixed inputs.
func BroadcastStructures(plan ChunkPlan, companyID uint16, sentinel byte) ([]Structure, error) {
	structures := make([]Structure, 0, len(plan))
	for i, chunk := range plan {
		if chunk.DataLen < CompanyIDWidth {
			return nil, &ConfigError{
				TargetTotal: plan.TotalBytes(),
				CapTotal:    chunk.TotalBytes,
				Reason:      "chunk too small for company identifier",
			}
		}
		data := make([]byte, chunk.DataLen)
		binary.LittleEndian.PutUint16(data, companyID)
		fill := byte(i + 1)
		if chunk.Partial {
			fill = sentinel
		}
		for j := CompanyIDWidth; j < len(data); j++ {
			data[j] = fill
		}
		structures = append(structures, Structure{Type: TypeManufacturerData, Data: data})
	}
	return structures, nil
}

// ConnectableStructures builds the small AD list for the connectable set:
// flags, the complete 16-bit service UUID list, and the complete local name.
func ConnectableStructures(name string, services []uint16) []Structure {
	uuids := make([]byte, 0, 2*len(services))
	for _, u := range services {
		uuids = binary.LittleEndian.AppendUint16(uuids, u)
	}
	return []Structure{
		{Type: TypeFlags, Data: []byte{FlagGeneralDiscoverable | FlagNoBREDR}},
		{Type: TypeAllUUID16, Data: uuids},
		{Type: TypeCompleteName, Data: []byte(name)},
	}
}
