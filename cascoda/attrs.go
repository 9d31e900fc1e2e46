package cascoda

// MLME/HWME PIB attribute identifiers used by this module. Values follow
// the Cascoda API / IEEE 802.15.4 MAC PIB numbering used by
// original_source/platform/radio.c; only the attributes this module touches
// are named here.
const (
	AttrSecurityEnabled        uint32 = 0x2C
	AttrMaxFrameRetries        uint32 = 0x59
	AttrMaxCSMABackoffs        uint32 = 0x4E
	AttrMaxBE                  uint32 = 0x47
	AttrDefaultKeySource       uint32 = 0x9B
	AttrTransactionPersistTime uint32 = 0x41
	AttrPANId                  uint32 = 0x4A
	AttrShortAddress           uint32 = 0x4B
	AttrRxOnWhenIdle           uint32 = 0x52
	AttrPromiscuousMode        uint32 = 0x51
	AttrCurrentChannel         uint32 = 0x4C // phyCurrentChannel
	AttrBeaconPayload          uint32 = 0x45
	AttrBeaconPayloadLength    uint32 = 0x46
	AttrDeviceTable            uint32 = 0x99
	AttrDeviceTableEntries     uint32 = 0x9A
	AttrKeyTable               uint32 = 0x71
	AttrKeyTableEntries        uint32 = 0x72
	AttrIEEEAddress            uint32 = 0xFF01 // nsIEEEAddress, vendor-assigned id
)

// HWME attribute identifiers.
const (
	HWAttrLQIMode  uint8 = 0x0D
	HWAttrPowerCon uint8 = 0x0B
)

const LQIModeEnergyDetect uint8 = 0x01

// Scan types for MLMEScan.
const (
	ScanTypeEnergy uint8 = 0
	ScanTypeActive uint8 = 1
)
