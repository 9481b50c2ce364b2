package balise

// Header is the fixed 50-bit telegram header that precedes the packets.
var Header = NewLayout(NoTag, "Telegram header",
	Var(QUpDown, 1),
	Var(MVersion, uint64(Version2_0)),
	Var(QMedia, 0),
	Var(NPig, 0),
	Var(NTotal, 0),
	Var(MDup, 0),
	Var(MMCount, 255),
	Var(NIDC, 0),
	Var(NIDBG, 0),
	Var(QLink, 1),
)

var VBCMarker = NewLayout(0, "Virtual balise cover marker",
	Var(NIDPacket, 0),
	Var(NIDVBCMK, 0),
)

var Linking = NewLayout(5, "Linking",
	Var(NIDPacket, 5),
	Var(QDir, 1),
	Var(LPacket, 69),
	Var(QScale, 1),
	Var(DLink, 100),
	Var(QNewCountry, 0),
	If(When(QNewCountry, 1), Var(NIDC, 0)),
	Var(NIDBG, 0),
	Var(QLinkOrientation, 1),
	Var(QLinkReaction, 2),
	Var(QLocAcc, 5),
	Repeat(NIter, 0,
		Var(DLink, 100),
		Var(QNewCountry, 0),
		If(When(QNewCountry, 1), Var(NIDC, 0)),
		Var(NIDBG, 0),
		Var(QLinkOrientation, 1),
		Var(QLinkReaction, 2),
		Var(QLocAcc, 5),
	),
)

var VBCOrder = NewLayout(6, "Virtual balise cover order",
	Var(NIDPacket, 6),
	Var(QDir, 0),
	Var(LPacket, 48),
	Var(QVBCO, 1),
	Var(NIDVBCMK, 8),
	Var(NIDC, 513),
	Var(TVBC, 247),
)

var MovementAuthority = NewLayout(12, "Level 1 movement authority",
	Var(NIDPacket, 12),
	Var(QDir, 1),
	Var(LPacket, 73),
	Var(QScale, 1),
	Var(VMain, 8),
	Var(VLoa, 0),
	Var(TLoa, 1023),
	Repeat(NIter, 0,
		Var(LSection, 500),
		Var(QSectionTimer, 0),
		If(When(QSectionTimer, 1),
			Var(TSectionTimer, 1023),
			Var(DSectionTimerStop, 0),
		),
	),
	Var(LEndSection, 500),
	Var(QSectionTimer, 0),
	If(When(QSectionTimer, 1),
		Var(TSectionTimer, 1023),
		Var(DSectionTimerStop, 0),
	),
	Var(QEndTimer, 0),
	If(When(QEndTimer, 1),
		Var(TEndTimer, 1023),
		Var(DEndTimerStart, 0),
	),
	Var(QDangerPoint, 0),
	If(When(QDangerPoint, 1),
		Var(DDP, 0),
		Var(VReleaseDP, 127),
	),
	Var(QOverlap, 0),
	If(When(QOverlap, 1),
		Var(DStartOL, 0),
		Var(TOL, 1023),
		Var(DOL, 0),
		Var(VReleaseOL, 127),
	),
)

var GradientProfile = NewLayout(21, "Gradient profile",
	Var(NIDPacket, 21),
	Var(QDir, 1),
	Var(LPacket, 78),
	Var(QScale, 1),
	Var(DGradient, 0),
	Var(QGDir, 1),
	Var(GA, 0),
	Repeat(NIter, 1,
		Var(DGradient, 1000),
		Var(QGDir, 0),
		Var(GA, 255),
	),
)

// SpeedProfileB2 is packet 27 as defined for system version 1.x: one
// category list per section.
var SpeedProfileB2 = NewLayout(27, "International static speed profile",
	Var(NIDPacket, 27),
	Var(QDir, 1),
	Var(LPacket, 86),
	Var(QScale, 1),
	Var(DStatic, 0),
	Var(VStatic, 32),
	Var(QFront, 0),
	Repeat(NIter, 0,
		Var(NCDiff, 0),
		Var(VDiff, 16),
	),
	Repeat(NIter, 1,
		Var(DStatic, 2000),
		Var(VStatic, 127),
		Var(QFront, 0),
		Repeat(NIter, 0,
			Var(NCDiff, 0),
			Var(VDiff, 16),
		),
	),
)

func speedDifferences() *Iteration {
	return Repeat(NIter, 0,
		Var(QDiff, 0),
		If(When(QDiff, 0), Var(NCCDDiff, 0)),
		If(When(QDiff, 1, 2), Var(NCDiff, 0)),
		Var(VDiff, 16),
	)
}

// SpeedProfileB3 is packet 27 as defined for system version 2.x, where each
// speed difference is qualified by Q_DIFF.
var SpeedProfileB3 = NewLayout(27, "International static speed profile",
	Var(NIDPacket, 27),
	Var(QDir, 1),
	Var(LPacket, 86),
	Var(QScale, 1),
	Var(DStatic, 0),
	Var(VStatic, 32),
	Var(QFront, 0),
	speedDifferences(),
	Repeat(NIter, 1,
		Var(DStatic, 2000),
		Var(VStatic, 127),
		Var(QFront, 0),
		speedDifferences(),
	),
)

var LevelTransition = NewLayout(41, "Level transition order",
	Var(NIDPacket, 41),
	Var(QDir, 1),
	Var(LPacket, 63),
	Var(QScale, 1),
	Var(DLevelTr, 32767),
	Var(MLevelTr, 3),
	If(When(MLevelTr, 1), Var(NIDNTC, 0)),
	Var(LAckLevelTr, 0),
	Repeat(NIter, 0,
		Var(MLevelTr, 2),
		If(When(MLevelTr, 1), Var(NIDNTC, 0)),
		Var(LAckLevelTr, 0),
	),
)

var TSR = NewLayout(65, "Temporary speed restriction",
	Var(NIDPacket, 65),
	Var(QDir, 1),
	Var(LPacket, 71),
	Var(QScale, 1),
	Var(NIDTSR, 0),
	Var(DTSR, 0),
	Var(LTSR, 0),
	Var(QFront, 0),
	Var(VTSR, 8),
)

var TSRRevocation = NewLayout(66, "Temporary speed restriction revocation",
	Var(NIDPacket, 66),
	Var(QDir, 1),
	Var(LPacket, 31),
	Var(NIDTSR, 0),
)

var GeographicalPosition = NewLayout(79, "Geographical position information",
	Var(NIDPacket, 79),
	Var(QDir, 1),
	Var(LPacket, 85),
	Var(QScale, 1),
	Var(QNewCountry, 0),
	If(When(QNewCountry, 1), Var(NIDC, 0)),
	Var(NIDBG, 0),
	Var(DPosOff, 0),
	Var(QMPosition, 1),
	Var(MPosition, 0),
	Repeat(NIter, 0,
		Var(QNewCountry, 0),
		If(When(QNewCountry, 1), Var(NIDC, 0)),
		Var(NIDBG, 0),
		Var(DPosOff, 0),
		Var(QMPosition, 1),
		Var(MPosition, 0),
	),
)

var DangerForShunting = NewLayout(132, "Danger for shunting information",
	Var(NIDPacket, 132),
	Var(QDir, 1),
	Var(LPacket, 24),
	Var(QAspect, 0),
)

var InfillLocation = NewLayout(136, "Infill location reference",
	Var(NIDPacket, 136),
	Var(QDir, 1),
	Var(LPacket, 38),
	Var(QNewCountry, 0),
	If(When(QNewCountry, 1), Var(NIDC, 0)),
	Var(NIDBG, 0),
)

var StopIfInSR = NewLayout(137, "Stop if in staff responsible",
	Var(NIDPacket, 137),
	Var(QDir, 1),
	Var(LPacket, 24),
	Var(QSRStop, 0),
)

var DefaultInformation = NewLayout(254, "Default balise, loop or RIU information",
	Var(NIDPacket, 254),
	Var(QDir, 1),
	Var(LPacket, 23),
)

var EndOfInformation = NewLayout(EndTag, "End of information",
	Var(NIDPacket, EndTag),
)
