package pmw3389

// Register addresses.
const (
	RegProductID        = 0x00
	RegRevisionID       = 0x01
	RegMotion           = 0x02
	RegDeltaXL          = 0x03
	RegDeltaXH          = 0x04
	RegDeltaYL          = 0x05
	RegDeltaYH          = 0x06
	RegSQUAL            = 0x07
	RegConfig2          = 0x10
	RegResolutionL      = 0x0E
	RegResolutionH      = 0x0F
	RegObservation      = 0x24
	RegPowerUpReset     = 0x3A
	RegShutdown         = 0x3B
	RegInverseProductID = 0x3F
	RegMotionBurst      = 0x50
)

// Wire protocol bits. The address MSB selects write (1) or read (0).
const (
	WriteBit = 0x80
	ReadMask = 0x7F
)

// Identification and reset values.
const (
	ProductID        = 0x47
	InverseProductID = 0xB8
	resetCommand     = 0x5A
)

// Timing requirements in microseconds. Sub-microsecond figures round up to 1.
const (
	tNCSSCLK     = 1      // CS low to first clock
	tSCLKNCSW    = 35     // last write clock to CS high
	tSCLKNCSR    = 1      // last read clock to CS high
	tSRAD        = 160    // read address to data
	tSWAD        = 1      // write address to data; the part has no figure, one clock period is enough
	tSWW         = 180    // write to next write
	tSRR         = 20     // read to next read
	tBEXIT       = 1      // burst exit
	tPowerUp     = 50_000 // after power-up reset
	tInitBackoff = 1_000  // between identification attempts
)

// CPI limits for the resolution registers.
const (
	MinCPI  = 50
	MaxCPI  = 16000
	CPIStep = 50
)

// Motion register flags.
const motionMOT = 0x80

// Button bits in a burst sample. The remaining bits are reserved and must be zero.
const (
	ButtonLeft   = 0x01
	ButtonRight  = 0x02
	ButtonMiddle = 0x04
	buttonMask   = ButtonLeft | ButtonRight | ButtonMiddle
)

// SampleSize is the length of one burst sample on the wire.
const SampleSize = 3
