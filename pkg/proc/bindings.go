package proc

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// varBinding associates one expression identifier with a processor state
// slot. Each variant implements both synchronization directions; read-only
// slots implement store as a no-op. Adding a register class means adding a
// variant here and wiring it into the domain table below.
type varBinding interface {
	load(cpu CPUState) float64
	store(cpu CPUState, v float64)
}

// bindNone is the binding of identifiers that match nothing: constant
// zero, never written back. Referencing an unknown name is not an error.
type bindNone struct{}

func (bindNone) load(CPUState) float64   { return 0 }
func (bindNone) store(CPUState, float64) {}

type bindGPR struct{ n int }

func (b bindGPR) load(cpu CPUState) float64 { return float64(cpu.GPR(b.n)) }
func (b bindGPR) store(cpu CPUState, v float64) {
	cpu.SetGPR(b.n, uint32(truncI64(v)))
}

type bindFPR struct{ n int }

func (b bindFPR) load(cpu CPUState) float64     { return cpu.FPR(b.n) }
func (b bindFPR) store(cpu CPUState, v float64) { cpu.SetFPR(b.n, v) }

type bindSPR struct{ id int }

func (b bindSPR) load(cpu CPUState) float64 { return float64(cpu.SPR(b.id)) }
func (b bindSPR) store(cpu CPUState, v float64) {
	cpu.SetSPR(b.id, uint32(truncI64(v)))
}

// bindPC is read-only; assignments to pc are silently dropped on Sync-To.
type bindPC struct{}

func (bindPC) load(cpu CPUState) float64 { return float64(cpu.PC()) }
func (bindPC) store(CPUState, float64)   {}

type bindMSR struct{}

func (bindMSR) load(cpu CPUState) float64 { return float64(cpu.MSR()) }
func (bindMSR) store(cpu CPUState, v float64) {
	cpu.SetMSR(uint32(truncI64(v)))
}

// truncI64 is the double to integer conversion used for every write to a
// 32-bit slot: truncate through int64, then narrow. NaN and values outside
// the int64 range map to 0 to keep the conversion defined.
func truncI64(v float64) int64 {
	if math.IsNaN(v) || v >= math.MaxInt64 || v <= math.MinInt64 {
		return 0
	}
	return int64(v)
}

// Special purpose register numbers of the 750CL class processor, as
// encoded by mfspr/mtspr.
const (
	sprXER   = 1
	sprLR    = 8
	sprCTR   = 9
	sprDSISR = 18
	sprDAR   = 19
	sprDEC   = 22
	sprSDR1  = 25
	sprSRR0  = 26
	sprSRR1  = 27
	sprTBL   = 268
	sprTBU   = 269
	sprSPRG0 = 272
	sprEAR   = 282
	sprPVR   = 287

	sprIBAT0U = 528 // IBAT0U..IBAT3L are 528..535
	sprDBAT0U = 536 // DBAT0U..DBAT3L are 536..543
	sprIBAT4U = 560 // IBAT4U..IBAT7L are 560..567
	sprDBAT4U = 568 // DBAT4U..DBAT7L are 568..575

	sprGQR0  = 912
	sprHID2  = 920
	sprWPAR  = 921
	sprDMAU  = 922
	sprDMAL  = 923
	sprECIDU = 924
	sprECIDM = 925
	sprECIDL = 926
	sprUSIA  = 939
	sprMMCR0 = 952
	sprPMC1  = 953
	sprPMC2  = 954
	sprSIA   = 955
	sprMMCR1 = 956
	sprPMC3  = 957
	sprPMC4  = 958
	sprHID0  = 1008
	sprHID1  = 1009
	sprIABR  = 1010
	sprHID4  = 1011
	sprDABR  = 1013
	sprL2CR  = 1017
	sprICTC  = 1019
	sprTHRM1 = 1020
	sprTHRM2 = 1021
	sprTHRM3 = 1022
)

type bindingEntry struct {
	name string
	bind varBinding
}

var (
	bindingTable     []bindingEntry
	bindingTableOnce sync.Once
)

// namedSPRs lists every special register the language can address, by its
// conventional assembler name.
var namedSPRs = []struct {
	name string
	id   int
}{
	{"xer", sprXER},
	{"lr", sprLR},
	{"ctr", sprCTR},
	{"dsisr", sprDSISR},
	{"dar", sprDAR},
	{"dec", sprDEC},
	{"sdr1", sprSDR1},
	{"srr0", sprSRR0},
	{"srr1", sprSRR1},
	{"tbl", sprTBL},
	{"tbu", sprTBU},
	{"pvr", sprPVR},
	{"sprg0", sprSPRG0 + 0},
	{"sprg1", sprSPRG0 + 1},
	{"sprg2", sprSPRG0 + 2},
	{"sprg3", sprSPRG0 + 3},
	{"ear", sprEAR},
	{"hid0", sprHID0},
	{"hid1", sprHID1},
	{"hid2", sprHID2},
	{"hid4", sprHID4},
	{"iabr", sprIABR},
	{"dabr", sprDABR},
	{"wpar", sprWPAR},
	{"dmau", sprDMAU},
	{"dmal", sprDMAL},
	{"ecid_u", sprECIDU},
	{"ecid_m", sprECIDM},
	{"ecid_l", sprECIDL},
	{"usia", sprUSIA},
	{"sia", sprSIA},
	{"l2cr", sprL2CR},
	{"ictc", sprICTC},
	{"mmcr0", sprMMCR0},
	{"mmcr1", sprMMCR1},
	{"pmc1", sprPMC1},
	{"pmc2", sprPMC2},
	{"pmc3", sprPMC3},
	{"pmc4", sprPMC4},
	{"thrm1", sprTHRM1},
	{"thrm2", sprTHRM2},
	{"thrm3", sprTHRM3},
}

// buildBindingTable constructs the process-wide identifier table: r0..r31,
// f0..f31, pc, msr, the named special registers, and the eight BAT pairs
// of each kind. It is sorted once and immutable afterwards; duplicate keys
// are a construction bug, not a runtime condition, and panic.
func buildBindingTable() {
	var entries []bindingEntry
	for i := 0; i < 32; i++ {
		entries = append(entries,
			bindingEntry{fmt.Sprintf("r%d", i), bindGPR{n: i}},
			bindingEntry{fmt.Sprintf("f%d", i), bindFPR{n: i}})
	}
	entries = append(entries,
		bindingEntry{"pc", bindPC{}},
		bindingEntry{"msr", bindMSR{}})
	for _, s := range namedSPRs {
		entries = append(entries, bindingEntry{s.name, bindSPR{id: s.id}})
	}
	for i := 0; i < 8; i++ {
		ibat, dbat := sprIBAT0U, sprDBAT0U
		if i >= 4 {
			ibat, dbat = sprIBAT4U-8, sprDBAT4U-8
		}
		entries = append(entries,
			bindingEntry{fmt.Sprintf("ibat%du", i), bindSPR{id: ibat + 2*i}},
			bindingEntry{fmt.Sprintf("ibat%dl", i), bindSPR{id: ibat + 2*i + 1}},
			bindingEntry{fmt.Sprintf("dbat%du", i), bindSPR{id: dbat + 2*i}},
			bindingEntry{fmt.Sprintf("dbat%dl", i), bindSPR{id: dbat + 2*i + 1}})
	}
	for i := 0; i < 8; i++ {
		entries = append(entries, bindingEntry{fmt.Sprintf("gqr%d", i), bindSPR{id: sprGQR0 + i}})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	for i := 1; i < len(entries); i++ {
		if entries[i].name == entries[i-1].name {
			panic("proc: binding table contains duplicate key " + entries[i].name)
		}
	}
	bindingTable = entries
}

// lookupBinding resolves name by exact, case sensitive match. Names that
// match nothing bind to constant zero.
func lookupBinding(name string) varBinding {
	bindingTableOnce.Do(buildBindingTable)
	i := sort.Search(len(bindingTable), func(i int) bool {
		return bindingTable[i].name >= name
	})
	if i < len(bindingTable) && bindingTable[i].name == name {
		return bindingTable[i].bind
	}
	return bindNone{}
}

// RegisterNames returns every identifier with a register binding, sorted.
// The front-end uses it for completion.
func RegisterNames() []string {
	bindingTableOnce.Do(buildBindingTable)
	names := make([]string, len(bindingTable))
	for i, e := range bindingTable {
		names[i] = e.name
	}
	return names
}
