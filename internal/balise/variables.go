package balise

import "example.com/balisegate/internal/dict"

var (
	tableDirection = dict.NewTable(map[uint64]string{
		0: "Reverse",
		1: "Nominal",
		2: "Both directions",
		3: "Spare",
	})
	tableScale = dict.NewTable(map[uint64]string{
		0: "10 cm",
		1: "1 m",
		2: "10 m",
		3: "Spare",
	})
	tableFollows = dict.NewTable(map[uint64]string{
		0: "No information",
		1: "Information follows",
	})
	tableNewCountry = dict.NewTable(map[uint64]string{
		0: "Same country or railway administration",
		1: "Not the same country or railway administration, NID_C follows",
	})
	tableFront = dict.NewTable(map[uint64]string{
		0: "Train length delay on validity end point",
		1: "No train length delay on validity end point",
	})
	tableOrientation = dict.NewTable(map[uint64]string{
		0: "Reverse",
		1: "Nominal",
	})
	tableLinkReaction = dict.NewTable(map[uint64]string{
		0: "Train trip",
		1: "Apply service brake",
		2: "No reaction",
		3: "Spare",
	})
	tableLevel = dict.NewTable(map[uint64]string{
		0: "Level 0",
		1: "Level NTC",
		2: "Level 1",
		3: "Level 2",
		4: "Level 3",
	})
	tableGradientDir = dict.NewTable(map[uint64]string{
		0: "Downhill",
		1: "Uphill",
	})
	tableTrainCategory = dict.NewTable(map[uint64]string{
		0: "Freight train braked in P position",
		1: "Freight train braked in G position",
		2: "Passenger train",
	})
	tableCantDeficiency = dict.NewTable(map[uint64]string{
		0:  "80 mm",
		1:  "100 mm",
		2:  "130 mm",
		3:  "150 mm",
		4:  "165 mm",
		5:  "180 mm",
		6:  "210 mm",
		7:  "225 mm",
		8:  "245 mm",
		9:  "275 mm",
		10: "300 mm",
	})
	tableDiff = dict.NewTable(map[uint64]string{
		0: "Cant deficiency specific category",
		1: "Other specific category, replaces the cant deficiency SSP",
		2: "Other specific category, does not replace the cant deficiency SSP",
		3: "Spare",
	})
	tableVBCO = dict.NewTable(map[uint64]string{
		0: "Remove",
		1: "Set",
	})
	tableSRStop = dict.NewTable(map[uint64]string{
		0: "Stop if in staff responsible",
		1: "Go if in staff responsible",
	})
	tableAspect = dict.NewTable(map[uint64]string{
		0: "Stop if in shunting",
		1: "Go if in shunting",
	})
	tableUpDown = dict.NewTable(map[uint64]string{
		0: "Down-link telegram (train to track)",
		1: "Up-link telegram (track to train)",
	})
	tableMedia = dict.NewTable(map[uint64]string{
		0: "Balise",
		1: "Loop",
	})
	tableDup = dict.NewTable(map[uint64]string{
		0: "No duplicates",
		1: "Duplicate of the next balise",
		2: "Duplicate of the previous balise",
		3: "Spare",
	})
	tableMCount = dict.NewTable(map[uint64]string{
		254: "Telegram never fits any message",
	})
	tableLink = dict.NewTable(map[uint64]string{
		0: "Unlinked",
		1: "Linked",
	})
	tableVersion = dict.NewTable(map[uint64]string{
		uint64(Version1_0): "1.0",
		uint64(Version1_1): "1.1",
		uint64(Version2_0): "2.0",
		uint64(Version2_1): "2.1",
	})
	tableCountDirection = dict.NewTable(map[uint64]string{
		0: "Opposite",
		1: "Same",
	})
	tableRelease = dict.NewTable(map[uint64]string{
		126: "Use on-board calculated release speed",
	})
)

func distance(name, desc string) *Variable {
	return &Variable{Name: name, Description: desc, Width: 15}
}

func speed(name, desc string) *Variable {
	return &Variable{Name: name, Description: desc, Width: 7, Unit: "km/h", Resolution: 5}
}

func timer(name, desc string) *Variable {
	return &Variable{Name: name, Description: desc, Width: 10, Unit: "s", Resolution: 1, Sentinel: dict.MaxSentinel(10, "Infinite")}
}

func qualifier(name, desc string, t *dict.Table) *Variable {
	return &Variable{Name: name, Description: desc, Width: 1, Table: t}
}

// Packet framing.
var (
	NIDPacket = &Variable{Name: "NID_PACKET", Description: "Packet identifier", Width: 8}
	QDir      = &Variable{Name: "Q_DIR", Description: "Validity direction of transmitted data", Width: 2, Table: tableDirection}
	LPacket   = &Variable{Name: "L_PACKET", Description: "Packet length", Width: 13, Unit: "bits", Resolution: 1}
	QScale    = &Variable{Name: "Q_SCALE", Description: "Distance scale", Width: 2, Table: tableScale}
	NIter     = &Variable{Name: "N_ITER", Description: "Number of iterations of a data set", Width: 5}
)

// Telegram header.
var (
	QUpDown  = qualifier("Q_UPDOWN", "Direction of the telegram", tableUpDown)
	MVersion = &Variable{Name: "M_VERSION", Description: "Version of the system", Width: 7, Table: tableVersion}
	QMedia   = qualifier("Q_MEDIA", "Type of medium", tableMedia)
	NPig     = &Variable{Name: "N_PIG", Description: "Position in the group", Width: 3}
	NTotal   = &Variable{Name: "N_TOTAL", Description: "Total number of balises in the group minus one", Width: 3}
	MDup     = &Variable{Name: "M_DUP", Description: "Duplicated balise", Width: 2, Table: tableDup}
	MMCount  = &Variable{Name: "M_MCOUNT", Description: "Message counter", Width: 8, Table: tableMCount, Sentinel: dict.MaxSentinel(8, "Telegram fits with all telegrams")}
	NIDC     = &Variable{Name: "NID_C", Description: "Country or region", Width: 10}
	NIDBG    = &Variable{Name: "NID_BG", Description: "Balise group identity", Width: 14, Sentinel: dict.MaxSentinel(14, "Unknown")}
	QLink    = qualifier("Q_LINK", "Balise group linking", tableLink)
)

// Positioning and linking.
var (
	QNewCountry       = qualifier("Q_NEWCOUNTRY", "Qualifier for a following NID_C", tableNewCountry)
	DLink             = distance("D_LINK", "Distance between linked balise groups")
	QLinkOrientation  = qualifier("Q_LINKORIENTATION", "Orientation of the linked balise group", tableOrientation)
	QLinkReaction     = &Variable{Name: "Q_LINKREACTION", Description: "Reaction when a linked balise group is missed", Width: 2, Table: tableLinkReaction}
	QLocAcc           = &Variable{Name: "Q_LOCACC", Description: "Location accuracy of the balise group", Width: 6, Unit: "m", Resolution: 1}
	DPosOff           = distance("D_POSOFF", "Offset to the reference location")
	QMPosition        = qualifier("Q_MPOSITION", "Counting direction of the geographical position", tableCountDirection)
	MPosition         = &Variable{Name: "M_POSITION", Description: "Geographical position", Width: 24, Sentinel: dict.MaxSentinel(24, "No more calculation")}
	NIDVBCMK          = &Variable{Name: "NID_VBCMK", Description: "Virtual balise cover marker", Width: 6}
	QVBCO             = qualifier("Q_VBCO", "Virtual balise cover order", tableVBCO)
	TVBC              = &Variable{Name: "T_VBC", Description: "Virtual balise cover validity", Width: 8, Unit: "days", Resolution: 1}
	DLevelTr          = &Variable{Name: "D_LEVELTR", Description: "Distance to the level transition", Width: 15, Sentinel: dict.MaxSentinel(15, "Now")}
	MLevelTr          = &Variable{Name: "M_LEVELTR", Description: "Level to switch to", Width: 3, Table: tableLevel}
	NIDNTC            = &Variable{Name: "NID_NTC", Description: "Identity of the national system", Width: 8}
	LAckLevelTr       = distance("L_ACKLEVELTR", "Length of the level transition acknowledgement area")
	QSRStop           = qualifier("Q_SRSTOP", "Stop if in staff responsible", tableSRStop)
	QAspect           = qualifier("Q_ASPECT", "Shunting signal aspect", tableAspect)
	NIDTSR            = &Variable{Name: "NID_TSR", Description: "Temporary speed restriction identity", Width: 8, Sentinel: dict.MaxSentinel(8, "Non revocable TSR")}
	DTSR              = distance("D_TSR", "Distance to the temporary speed restriction")
	LTSR              = distance("L_TSR", "Length of the temporary speed restriction")
	VTSR              = speed("V_TSR", "Temporary speed restriction value")
	QFront            = qualifier("Q_FRONT", "Train length delay", tableFront)
	DGradient         = distance("D_GRADIENT", "Distance to the gradient change")
	QGDir             = qualifier("Q_GDIR", "Gradient direction", tableGradientDir)
	GA                = &Variable{Name: "G_A", Description: "Gradient", Width: 8, Unit: "‰", Resolution: 1, Sentinel: dict.MaxSentinel(8, "End of gradient profile")}
	DStatic           = distance("D_STATIC", "Distance to the static speed profile change")
	VStatic           = &Variable{Name: "V_STATIC", Description: "Static speed profile value", Width: 7, Unit: "km/h", Resolution: 5, Sentinel: dict.MaxSentinel(7, "End of profile")}
	NCDiff            = &Variable{Name: "NC_DIFF", Description: "Specific train category", Width: 4, Table: tableTrainCategory}
	NCCDDiff          = &Variable{Name: "NC_CDDIFF", Description: "Cant deficiency category", Width: 4, Table: tableCantDeficiency}
	QDiff             = &Variable{Name: "Q_DIFF", Description: "Specific SSP category", Width: 2, Table: tableDiff}
	VDiff             = speed("V_DIFF", "Specific static speed value")
	VMain             = speed("V_MAIN", "Target speed")
	VLoa              = speed("V_LOA", "Speed at the limit of authority")
	TLoa              = timer("T_LOA", "Validity time of the LOA speed")
	LSection          = distance("L_SECTION", "Length of the section")
	LEndSection       = distance("L_ENDSECTION", "Length of the end section")
	QSectionTimer     = qualifier("Q_SECTIONTIMER", "Section timer qualifier", tableFollows)
	TSectionTimer     = timer("T_SECTIONTIMER", "Section timeout")
	DSectionTimerStop = distance("D_SECTIONTIMERSTOPLOC", "Section timer stop location")
	QEndTimer         = qualifier("Q_ENDTIMER", "End section timer qualifier", tableFollows)
	TEndTimer         = timer("T_ENDTIMER", "End section timeout")
	DEndTimerStart    = distance("D_ENDTIMERSTARTLOC", "End section timer start location")
	QDangerPoint      = qualifier("Q_DANGERPOINT", "Danger point qualifier", tableFollows)
	DDP               = distance("D_DP", "Distance to the danger point")
	VReleaseDP        = &Variable{Name: "V_RELEASEDP", Description: "Release speed for the danger point", Width: 7, Unit: "km/h", Resolution: 5, Table: tableRelease, Sentinel: dict.MaxSentinel(7, "Use national value")}
	QOverlap          = qualifier("Q_OVERLAP", "Overlap qualifier", tableFollows)
	DStartOL          = distance("D_STARTOL", "Distance to the overlap timer start")
	TOL               = timer("T_OL", "Overlap timeout")
	DOL               = distance("D_OL", "Distance to the end of the overlap")
	VReleaseOL        = &Variable{Name: "V_RELEASEOL", Description: "Release speed for the overlap", Width: 7, Unit: "km/h", Resolution: 5, Table: tableRelease, Sentinel: dict.MaxSentinel(7, "Use national value")}
)

// Variables returns every catalog variable, for dictionary validation and
// documentation.
func Variables() []*Variable {
	return []*Variable{
		NIDPacket, QDir, LPacket, QScale, NIter,
		QUpDown, MVersion, QMedia, NPig, NTotal, MDup, MMCount, NIDC, NIDBG, QLink,
		QNewCountry, DLink, QLinkOrientation, QLinkReaction, QLocAcc, DPosOff, QMPosition, MPosition,
		NIDVBCMK, QVBCO, TVBC, DLevelTr, MLevelTr, NIDNTC, LAckLevelTr, QSRStop, QAspect,
		NIDTSR, DTSR, LTSR, VTSR, QFront, DGradient, QGDir, GA, DStatic, VStatic,
		NCDiff, NCCDDiff, QDiff, VDiff, VMain, VLoa, TLoa, LSection, LEndSection,
		QSectionTimer, TSectionTimer, DSectionTimerStop, QEndTimer, TEndTimer, DEndTimerStart,
		QDangerPoint, DDP, VReleaseDP, QOverlap, DStartOL, TOL, DOL, VReleaseOL,
	}
}

// VariableWidth reports the width of a catalog variable by name.
func VariableWidth(name string) (int, bool) {
	for _, v := range Variables() {
		if v.Name == name {
			return v.Width, true
		}
	}
	return 0, false
}
