package legal

import "fmt"

// ChamberCode is a canonical chamber or board code from the closed set.
// Adapters translate codes to their backend-native labels; ChamberAll maps
// to "no filter" everywhere.
type ChamberCode string

const ChamberAll ChamberCode = "ALL"

// Yargıtay general assemblies and boards.
const (
	ChamberHGK ChamberCode = "HGK" // Hukuk Genel Kurulu
	ChamberCGK ChamberCode = "CGK" // Ceza Genel Kurulu
	ChamberBGK ChamberCode = "BGK" // Büyük Genel Kurulu
	ChamberHBK ChamberCode = "HBK" // Hukuk Daireleri Başkanlar Kurulu
	ChamberCBK ChamberCode = "CBK" // Ceza Daireleri Başkanlar Kurulu
)

// Danıştay assemblies and boards.
const (
	ChamberIDDK ChamberCode = "IDDK" // İdare Dava Daireleri Kurulu
	ChamberVDDK ChamberCode = "VDDK" // Vergi Dava Daireleri Kurulu
	ChamberIBK  ChamberCode = "IBK"  // İçtihatları Birleştirme Kurulu
	ChamberIIK  ChamberCode = "IIK"  // İdari İşler Kurulu
	ChamberDBGK ChamberCode = "DBGK" // Danıştay Büyük Genel Kurulu
	ChamberAYIM ChamberCode = "AYIM" // Askeri Yüksek İdare Mahkemesi (tarihsel)
)

const (
	civilChambers    = 23 // H1..H23
	criminalChambers = 23 // C1..C23
	danistayChambers = 17 // D1..D17
)

// CivilChamber returns the code for the n'th Yargıtay civil chamber.
func CivilChamber(n int) ChamberCode { return ChamberCode(fmt.Sprintf("H%d", n)) }

// CriminalChamber returns the code for the n'th Yargıtay criminal chamber.
func CriminalChamber(n int) ChamberCode { return ChamberCode(fmt.Sprintf("C%d", n)) }

// DanistayChamber returns the code for the n'th Danıştay chamber.
func DanistayChamber(n int) ChamberCode { return ChamberCode(fmt.Sprintf("D%d", n)) }

// chamberLabels is the exhaustive code to backend-native label table. The
// numbered chambers are generated in init so the set stays closed and total.
var chamberLabels = map[ChamberCode]string{
	ChamberAll:  "",
	ChamberHGK:  "Hukuk Genel Kurulu",
	ChamberCGK:  "Ceza Genel Kurulu",
	ChamberBGK:  "Büyük Genel Kurulu",
	ChamberHBK:  "Hukuk Daireleri Başkanlar Kurulu",
	ChamberCBK:  "Ceza Daireleri Başkanlar Kurulu",
	ChamberIDDK: "İdare Dava Daireleri Kurulu",
	ChamberVDDK: "Vergi Dava Daireleri Kurulu",
	ChamberIBK:  "İçtihatları Birleştirme Kurulu",
	ChamberIIK:  "İdari İşler Kurulu",
	ChamberDBGK: "Büyük Gen.Kur.",
	ChamberAYIM: "Askeri Yüksek İdare Mahkemesi",
}

func init() {
	for n := 1; n <= civilChambers; n++ {
		chamberLabels[CivilChamber(n)] = fmt.Sprintf("%d. Hukuk Dairesi", n)
	}
	for n := 1; n <= criminalChambers; n++ {
		chamberLabels[CriminalChamber(n)] = fmt.Sprintf("%d. Ceza Dairesi", n)
	}
	for n := 1; n <= danistayChambers; n++ {
		chamberLabels[DanistayChamber(n)] = fmt.Sprintf("%d. Daire", n)
	}
}

// Valid reports whether c belongs to the closed chamber set.
func (c ChamberCode) Valid() bool {
	if c == "" {
		return true
	}
	_, ok := chamberLabels[c]
	return ok
}

// Label translates c to the backend-native chamber string. ChamberAll and
// the empty code translate to the empty string (no filter).
func (c ChamberCode) Label() string {
	if c == "" {
		return ""
	}
	return chamberLabels[c]
}

// ChamberCodes returns every code in the closed set, ChamberAll included.
// The order is unspecified.
func ChamberCodes() []ChamberCode {
	out := make([]ChamberCode, 0, len(chamberLabels))
	for c := range chamberLabels {
		out = append(out, c)
	}
	return out
}
