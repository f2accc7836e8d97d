package advdata

import "fmt"

// ChunkDescriptor describes one AD structure in a chunked broadcast payload.
// TotalBytes is the structure's full wire cost; DataLen is the data that
// remains after the length and type bytes. Partial marks the remainder chunk
// carrying less than the structure cap.
type ChunkDescriptor struct {
	TotalBytes int
	DataLen    int
	Partial    bool
}

// ChunkPlan is the ordered list of sub-fields realizing a payload whose size
// exceeds one structure's capacity. It is computed once at startup and never
// mutated.
type ChunkPlan []ChunkDescriptor

// TotalBytes returns the wire cost of the whole plan.
func (p ChunkPlan) TotalBytes() int {
	total := 0
	for _, c := range p {
		total += c.TotalBytes
	}
	return total
}

// ConfigError reports invalid chunk sizing. Chunk sizes are fixed
// configuration, so a ConfigError must surface at startup, before any radio
// call.
type ConfigError struct {
	TargetTotal    int
	CapTotal       int
	HeaderOverhead int
	Reason         string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("advdata: invalid chunk configuration (target=%d cap=%d overhead=%d): %s",
		e.TargetTotal, e.CapTotal, e.HeaderOverhead, e.Reason)
}

// Plan splits targetTotal payload bytes into structures of at most capTotal
// total bytes each, where every structure loses headerOverhead bytes to
// framing.
//
// Every chunk but the last contributes exactly capTotal bytes. If targetTotal
// divides evenly there is no partial chunk; otherwise the final chunk carries
// the remainder. The remainder must leave room for at least one data byte
// after framing, or the configuration is rejected.
func Plan(targetTotal, capTotal, headerOverhead int) (ChunkPlan, error) {
	fail := func(reason string) (ChunkPlan, error) {
		return nil, &ConfigError{
			TargetTotal:    targetTotal,
			CapTotal:       capTotal,
			HeaderOverhead: headerOverhead,
			Reason:         reason,
		}
	}
	if targetTotal <= 0 {
		return fail("target size must be positive")
	}
	if headerOverhead < 0 {
		return fail("header overhead must not be negative")
	}
	if capTotal <= headerOverhead {
		return fail("structure cap does not fit the header")
	}

	fullCount := targetTotal / capTotal
	remainder := targetTotal % capTotal

	plan := make(ChunkPlan, 0, fullCount+1)
	for i := 0; i < fullCount; i++ {
		plan = append(plan, ChunkDescriptor{
			TotalBytes: capTotal,
			DataLen:    capTotal - headerOverhead,
		})
	}
	if remainder > 0 {
		if remainder-headerOverhead <= 0 {
			return fail("final structure would have no data bytes")
		}
		plan = append(plan, ChunkDescriptor{
			TotalBytes: remainder,
			DataLen:    remainder - headerOverhead,
			Partial:    true,
		})
	}
	return plan, nil
}
