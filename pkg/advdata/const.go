package advdata

// Advertising data types.
// Refer to Supplement to Bluetooth Core Specification | CSSv6, Part A
const (
	TypeFlags            = 0x01 // Flags
	TypeSomeUUID16       = 0x02 // Incomplete List of 16-bit Service UUIDs
	TypeAllUUID16        = 0x03 // Complete List of 16-bit Service UUIDs
	TypeShortName        = 0x08 // Shortened Local Name
	TypeCompleteName     = 0x09 // Complete Local Name
	TypeTxPower          = 0x0A // Tx Power Level
	TypeServiceData16    = 0x16 // Service Data - 16-bit UUID
	TypeManufacturerData = 0xFF // Manufacturer Specific Data
)

// Flags field bits.
const (
	FlagLimitedDiscoverable = 0x01
	FlagGeneralDiscoverable = 0x02
	FlagNoBREDR             = 0x04
)

// 16-bit service UUIDs advertised by the connectable set.
const (
	UUIDHeartRateService  = 0x180D
	UUIDBatteryService    = 0x180F
	UUIDDeviceInfoService = 0x180A
)

// StructureOverhead is the wire cost of an AD structure beyond its data: one
// length byte (covering type+data) and one type byte.
const StructureOverhead = 2
