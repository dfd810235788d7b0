package molecule

import (
	"strconv"
	"strings"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Molecular graph
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the order of a bond in the parsed graph.
type BondOrder uint8

const (
	BondSingle      BondOrder = 1
	BondDouble      BondOrder = 2
	BondTriple      BondOrder = 3
	BondQuadruple   BondOrder = 4
	BondAromatic    BondOrder = 5
	bondUnspecified BondOrder = 0
)

// valenceContribution is the bond's share of an atom's valence.  Aromatic
// bonds count as one; aromatic atoms add one more when implicit hydrogens are
// derived.
func (o BondOrder) valenceContribution() int {
	switch o {
	case BondAromatic:
		return 1
	default:
		return int(o)
	}
}

// Atom is one vertex of a parsed SMILES graph.
type Atom struct {
	Symbol       string
	AtomicNumber int
	Aromatic     bool
	Isotope      int
	Charge       int
	// ExplicitH is the hydrogen count written inside brackets, -1 outside.
	ExplicitH int
	Bracket   bool
}

// Bond joins two atom indices.
type Bond struct {
	From, To int
	Order    BondOrder
}

// Molecule is the hydrogen-suppressed graph produced by ParseSMILES.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond
	// adjacency holds bond indices per atom.
	adjacency [][]int
}

// Neighbors returns the indices of atoms bonded to atom i with the bond order.
func (m *Molecule) Neighbors(i int) (atoms []int, orders []BondOrder) {
	for _, bi := range m.adjacency[i] {
		b := m.Bonds[bi]
		other := b.To
		if other == i {
			other = b.From
		}
		atoms = append(atoms, other)
		orders = append(orders, b.Order)
	}
	return atoms, orders
}

// Degree is the number of explicit (heavy) neighbours of atom i.
func (m *Molecule) Degree(i int) int { return len(m.adjacency[i]) }

// defaultValences lists allowed valences for organic-subset atoms.
var defaultValences = map[string][]int{
	"B": {3}, "C": {4}, "N": {3, 5}, "O": {2}, "P": {3, 5}, "S": {2, 4, 6},
	"F": {1}, "Cl": {1}, "Br": {1}, "I": {1},
}

// TotalHydrogens returns explicit bracket hydrogens or, for organic-subset
// atoms, the implicit count from the lowest valence that fits.
func (m *Molecule) TotalHydrogens(i int) int {
	a := m.Atoms[i]
	if a.ExplicitH >= 0 {
		return a.ExplicitH
	}
	valences, ok := defaultValences[a.Symbol]
	if !ok {
		return 0
	}
	used := 0
	for _, bi := range m.adjacency[i] {
		used += m.Bonds[bi].Order.valenceContribution()
	}
	if a.Aromatic {
		used++
	}
	for _, v := range valences {
		if v >= used {
			return v - used
		}
	}
	return 0
}

// RingAtoms marks atoms that lie on at least one cycle.  A bond is cyclic iff
// it is not a bridge; an atom is cyclic iff any incident bond is cyclic.
func (m *Molecule) RingAtoms() []bool {
	n := len(m.Atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	bridge := make([]bool, len(m.Bonds))
	timer := 0

	var visit func(u, parentBond int)
	visit = func(u, parentBond int) {
		disc[u] = timer
		low[u] = timer
		timer++
		for _, bi := range m.adjacency[u] {
			if bi == parentBond {
				continue
			}
			b := m.Bonds[bi]
			v := b.To
			if v == u {
				v = b.From
			}
			if disc[v] == -1 {
				visit(v, bi)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if low[v] > disc[u] {
					bridge[bi] = true
				}
			} else if disc[v] < low[u] {
				low[u] = disc[v]
			}
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] == -1 {
			visit(i, -1)
		}
	}

	inRing := make([]bool, n)
	for bi, b := range m.Bonds {
		if !bridge[bi] {
			inRing[b.From] = true
			inRing[b.To] = true
		}
	}
	return inRing
}

// ─────────────────────────────────────────────────────────────────────────────
// Parser
// ─────────────────────────────────────────────────────────────────────────────

type ringOpening struct {
	atom  int
	order BondOrder
}

type smilesParser struct {
	src     string
	pos     int
	mol     *Molecule
	prev    int
	pending BondOrder
	// branchOpened is set right after '(' so that "()" is rejected.
	branchOpened bool
	branches     []int
	rings        map[int]ringOpening
}

func invalidEncoding(reason string, pos int) *errors.AppError {
	return errors.New(errors.ErrCodeInvalidEncoding, reason).WithDetail("position " + strconv.Itoa(pos))
}

// ParseSMILES parses a SMILES string into a hydrogen-suppressed graph.  Any
// text after the first whitespace is treated as a title and ignored.  Every
// syntax problem is reported as ErrCodeInvalidEncoding.
func ParseSMILES(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil, errors.New(errors.ErrCodeInvalidEncoding, "empty structural encoding")
	}

	p := &smilesParser{
		src:   s,
		mol:   &Molecule{},
		prev:  -1,
		rings: make(map[int]ringOpening),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.mol, nil
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 || p.pending != bondUnspecified {
				return invalidEncoding("branch without a preceding atom", p.pos)
			}
			p.branches = append(p.branches, p.prev)
			p.branchOpened = true
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return invalidEncoding("unbalanced ')'", p.pos)
			}
			if p.branchOpened || p.pending != bondUnspecified {
				return invalidEncoding("empty branch or dangling bond", p.pos)
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case strings.IndexByte("-=#$:/\\", c) >= 0:
			if p.prev < 0 || p.pending != bondUnspecified {
				return invalidEncoding("misplaced bond symbol", p.pos)
			}
			p.pending = bondFromSymbol(c)
			p.pos++
		case c == '.':
			if p.prev < 0 || p.pending != bondUnspecified || p.branchOpened {
				return invalidEncoding("misplaced '.'", p.pos)
			}
			p.prev = -1
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			atom, err := p.bracketAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(atom); err != nil {
				return err
			}
		default:
			atom, err := p.organicAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(atom); err != nil {
				return err
			}
		}
	}

	switch {
	case p.pending != bondUnspecified:
		return invalidEncoding("dangling bond at end of input", p.pos)
	case len(p.branches) > 0:
		return invalidEncoding("unbalanced '('", p.pos)
	case len(p.rings) > 0:
		return invalidEncoding("unclosed ring bond", p.pos)
	case len(p.mol.Atoms) == 0:
		return invalidEncoding("no atoms", p.pos)
	}
	return nil
}

func bondFromSymbol(c byte) BondOrder {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		return BondQuadruple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

func (p *smilesParser) addAtom(a Atom) error {
	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, a)
	p.mol.adjacency = append(p.mol.adjacency, nil)
	if p.prev >= 0 {
		if err := p.addBond(p.prev, idx, p.pending); err != nil {
			return err
		}
	} else if p.pending != bondUnspecified {
		return invalidEncoding("bond before first atom", p.pos)
	}
	p.pending = bondUnspecified
	p.branchOpened = false
	p.prev = idx
	return nil
}

func (p *smilesParser) addBond(from, to int, order BondOrder) error {
	if from == to {
		return invalidEncoding("atom bonded to itself", p.pos)
	}
	for _, bi := range p.mol.adjacency[from] {
		b := p.mol.Bonds[bi]
		if b.From == to || b.To == to {
			return invalidEncoding("duplicate bond", p.pos)
		}
	}
	if order == bondUnspecified {
		order = BondSingle
		if p.mol.Atoms[from].Aromatic && p.mol.Atoms[to].Aromatic {
			order = BondAromatic
		}
	}
	bi := len(p.mol.Bonds)
	p.mol.Bonds = append(p.mol.Bonds, Bond{From: from, To: to, Order: order})
	p.mol.adjacency[from] = append(p.mol.adjacency[from], bi)
	p.mol.adjacency[to] = append(p.mol.adjacency[to], bi)
	return nil
}

func (p *smilesParser) ringClosure() error {
	start := p.pos
	if p.prev < 0 {
		return invalidEncoding("ring bond without a preceding atom", start)
	}
	var num int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return invalidEncoding("malformed '%' ring number", start)
		}
		num = int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
		p.pos += 3
	} else {
		num = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpening{atom: p.prev, order: p.pending}
		p.pending = bondUnspecified
		return nil
	}
	delete(p.rings, num)

	order := p.pending
	if open.order != bondUnspecified {
		if order != bondUnspecified && order != open.order {
			return invalidEncoding("conflicting ring bond orders", start)
		}
		order = open.order
	}
	p.pending = bondUnspecified
	return p.addBond(open.atom, p.prev, order)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *smilesParser) organicAtom() (Atom, error) {
	c := p.src[p.pos]
	if c == '*' {
		p.pos++
		return Atom{Symbol: "*", ExplicitH: 0}, nil
	}
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			p.pos += 2
			return Atom{Symbol: two, AtomicNumber: atomicNumbers[two], ExplicitH: -1}, nil
		}
	}
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		p.pos++
		sym := string(c)
		return Atom{Symbol: sym, AtomicNumber: atomicNumbers[sym], ExplicitH: -1}, nil
	case 'b', 'c', 'n', 'o', 'p', 's':
		p.pos++
		sym := strings.ToUpper(string(c))
		return Atom{Symbol: sym, AtomicNumber: atomicNumbers[sym], Aromatic: true, ExplicitH: -1}, nil
	}
	return Atom{}, invalidEncoding("unexpected character "+strconv.QuoteRune(rune(c)), p.pos)
}

// bracketAtom parses "[" isotope? symbol chiral? hcount? charge? class? "]".
func (p *smilesParser) bracketAtom() (Atom, error) {
	start := p.pos
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return Atom{}, invalidEncoding("unterminated bracket atom", start)
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	atom := Atom{Bracket: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		atom.Isotope = atom.Isotope*10 + int(body[i]-'0')
		i++
	}

	sym, aromatic, n := bracketSymbol(body[i:])
	if n == 0 {
		return Atom{}, invalidEncoding("unknown element in bracket atom", start)
	}
	atom.Symbol = sym
	atom.Aromatic = aromatic
	atom.AtomicNumber = atomicNumbers[sym]
	i += n

	// Chirality carries no weight in the fingerprint; skip it.
	if i < len(body) && body[i] == '@' {
		i++
		if i < len(body) && body[i] == '@' {
			i++
		} else {
			for i < len(body) && body[i] >= 'A' && body[i] <= 'Z' && body[i] != 'H' {
				i++
			}
			for i < len(body) && isDigit(body[i]) {
				i++
			}
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		atom.ExplicitH = 1
		if i < len(body) && isDigit(body[i]) {
			atom.ExplicitH = 0
			for i < len(body) && isDigit(body[i]) {
				atom.ExplicitH = atom.ExplicitH*10 + int(body[i]-'0')
				i++
			}
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		mark := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			v := 0
			for i < len(body) && isDigit(body[i]) {
				v = v*10 + int(body[i]-'0')
				i++
			}
			atom.Charge = sign * v
		default:
			v := 1
			for i < len(body) && body[i] == mark {
				v++
				i++
			}
			atom.Charge = sign * v
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		if i >= len(body) || !isDigit(body[i]) {
			return Atom{}, invalidEncoding("malformed atom class", start)
		}
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}

	if i != len(body) {
		return Atom{}, invalidEncoding("unexpected text in bracket atom", start)
	}
	return atom, nil
}

var bracketAromatic = map[string]string{
	"se": "Se", "as": "As", "te": "Te",
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
}

// bracketSymbol reads an element symbol at the start of s and returns the
// canonical symbol, whether it was written aromatic, and the bytes consumed.
func bracketSymbol(s string) (string, bool, int) {
	if s == "" {
		return "", false, 0
	}
	if s[0] == '*' {
		return "*", false, 1
	}
	if len(s) >= 2 {
		if sym, ok := bracketAromatic[s[:2]]; ok {
			return sym, true, 2
		}
	}
	if sym, ok := bracketAromatic[s[:1]]; ok {
		return sym, true, 1
	}
	if s[0] < 'A' || s[0] > 'Z' {
		return "", false, 0
	}
	if len(s) >= 2 && s[1] >= 'a' && s[1] <= 'z' {
		if _, ok := atomicNumbers[s[:2]]; ok {
			return s[:2], false, 2
		}
	}
	if _, ok := atomicNumbers[s[:1]]; ok {
		return s[:1], false, 1
	}
	return "", false, 0
}

var elementSymbols = []string{
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy",
	"Ho", "Er", "Tm", "Yb", "Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt",
	"Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra", "Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf",
	"Es", "Fm", "Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
	"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for i, s := range elementSymbols {
		m[s] = i + 1
	}
	return m
}()

//Personal.AI order the ending
