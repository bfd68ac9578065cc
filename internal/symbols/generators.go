package symbols

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidParams = errors.New("invalid symbol parameters")
	ErrInvalidExpiry = errors.New("invalid option expiry")
	ErrInvalidStrike = errors.New("invalid option strike")
)

var eraCodes = map[string]string{
	"golden": "G",
	"silver": "S",
	"bronze": "B",
	"modern": "M",
}

var roleCodes = map[string]string{
	"writer":    "W",
	"artist":    "A",
	"penciller": "P",
	"inker":     "I",
	"colorist":  "C",
	"letterer":  "L",
	"editor":    "E",
}

var instrumentCodes = map[string]string{
	"future":  "F",
	"swap":    "S",
	"forward": "FW",
	"warrant": "W",
}

type generator struct {
	decode   func(json.RawMessage) (Params, error)
	generate func(*Registry, Params) (string, error)
}

func entry[P Params](fn func(*Registry, P) (string, error)) generator {
	return generator{
		decode: func(raw json.RawMessage) (Params, error) {
			var p P
			if err := decodeInto(raw, &p); err != nil {
				return nil, err
			}
			return p, nil
		},
		generate: func(r *Registry, p Params) (string, error) {
			typed, ok := p.(P)
			if !ok {
				return "", fmt.Errorf("%w: unexpected params %T for %s", ErrInvalidParams, p, p.AssetType())
			}
			return fn(r, typed)
		},
	}
}

var generators = map[AssetType]generator{
	TypeComic:      entry((*Registry).Comic),
	TypeCharacter:  entry((*Registry).Character),
	TypeVillain:    entry((*Registry).Villain),
	TypeSidekick:   entry((*Registry).Sidekick),
	TypeBond:       entry((*Registry).Bond),
	TypeOption:     entry((*Registry).Option),
	TypeFund:       entry((*Registry).Fund),
	TypeETF:        entry((*Registry).ETF),
	TypeDerivative: entry((*Registry).Derivative),
	TypeCrypto:     entry((*Registry).Crypto),
	TypeNFT:        entry((*Registry).NFT),
	TypeGadget:     entry((*Registry).Gadget),
	TypeLocation:   entry((*Registry).Location),
	TypePet:        entry((*Registry).Pet),
	TypeCreator:    entry((*Registry).Creator),
}

// Symbol returns the base ticker for p without any collision handling.
func (r *Registry) Symbol(p Params) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: nil params", ErrInvalidParams)
	}
	g, ok := generators[p.AssetType()]
	if !ok {
		name := "UNKNOWN"
		if gp, isGeneric := p.(GenericParams); isGeneric && strings.TrimSpace(gp.Name) != "" {
			name = gp.Name
		}
		return clip(r.CoreSymbol(name, 10)), nil
	}
	return g.generate(r, p)
}

// Comic renders CORE.V{volume}.#{issue}, with a trailing era code when it fits.
func (r *Registry) Comic(p ComicParams) (string, error) {
	name := firstNonEmpty(p.Series, p.Title, p.Name, "COMIC")
	vol := p.Volume
	if vol <= 0 {
		vol = 1
	}
	issue := p.Issue
	if issue <= 0 {
		issue = 1
	}
	sym := fmt.Sprintf("%s.V%d.#%d", r.CoreSymbol(name, 4), vol, issue)
	if code, ok := eraCodes[strings.ToLower(strings.TrimSpace(p.Era))]; ok && len(sym) <= 13 {
		sym += "." + code
	}
	return clip(sym), nil
}

func (r *Registry) Character(p CharacterParams) (string, error) {
	if err := requireName(p.Name, TypeCharacter); err != nil {
		return "", err
	}
	return clip(r.CoreSymbol(p.Name, 10)), nil
}

func (r *Registry) Villain(p VillainParams) (string, error) {
	if err := requireName(p.Name, TypeVillain); err != nil {
		return "", err
	}
	return clip(r.CoreSymbol(p.Name, 8) + ".V"), nil
}

func (r *Registry) Sidekick(p SidekickParams) (string, error) {
	if err := requireName(p.Name, TypeSidekick); err != nil {
		return "", err
	}
	return clip(r.CoreSymbol(p.Name, 7) + ".SK"), nil
}

// Bond renders CORE.B{coupon}.{yy}.
func (r *Registry) Bond(p BondParams) (string, error) {
	issuer := firstNonEmpty(p.Issuer, p.Name)
	if err := requireName(issuer, TypeBond); err != nil {
		return "", err
	}
	if math.IsNaN(p.CouponRate) || math.IsInf(p.CouponRate, 0) || p.CouponRate < 0 {
		return "", fmt.Errorf("%w: bond coupon must be a non-negative number", ErrInvalidParams)
	}
	if p.MaturityYear <= 0 {
		return "", fmt.Errorf("%w: bond maturity year is required", ErrInvalidParams)
	}
	year := strconv.Itoa(p.MaturityYear)
	yy := year[max(0, len(year)-2):]
	coupon := strconv.FormatFloat(p.CouponRate, 'f', -1, 64)
	return clip(fmt.Sprintf("%s.B%s.%s", r.CoreSymbol(issuer, 5), coupon, yy)), nil
}

// Option renders CORE.O{MMDD}{C|P}{strike}. Any type other than "call" is a put.
func (r *Registry) Option(p OptionParams) (string, error) {
	underlying := firstNonEmpty(p.Underlying, p.Name)
	if err := requireName(underlying, TypeOption); err != nil {
		return "", err
	}
	expiry, err := expiryCode(p)
	if err != nil {
		return "", err
	}
	if p.Strike == nil || math.IsNaN(*p.Strike) || math.IsInf(*p.Strike, 0) || *p.Strike <= 0 {
		return "", fmt.Errorf("%w: strike must be a positive number", ErrInvalidStrike)
	}
	side := "P"
	if strings.EqualFold(strings.TrimSpace(p.OptionType), "call") {
		side = "C"
	}
	strike := strconv.FormatFloat(math.Floor(*p.Strike), 'f', 0, 64)
	return clip(fmt.Sprintf("%s.O%s%s%s", r.CoreSymbol(underlying, 4), expiry, side, strike)), nil
}

func expiryCode(p OptionParams) (string, error) {
	if code := sanitize(p.ExpiryCode); code != "" {
		return code, nil
	}
	raw := strings.TrimSpace(p.Expiry)
	if raw == "" {
		return "", fmt.Errorf("%w: expiry is required", ErrInvalidExpiry)
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidExpiry, raw)
		}
	}
	// Timestamps keep the calendar date they were written with.
	return t.Format("0102"), nil
}

func (r *Registry) Fund(p FundParams) (string, error) {
	return r.fundLike(p.Name, ".F", p.FundClass, p.Focus, TypeFund)
}

func (r *Registry) ETF(p ETFParams) (string, error) {
	return r.fundLike(p.Name, ".E", p.ETFClass, p.Focus, TypeETF)
}

func (r *Registry) fundLike(name, marker, class, focus string, t AssetType) (string, error) {
	if err := requireName(name, t); err != nil {
		return "", err
	}
	classCode := truncate(sanitize(class), 1)
	if classCode == "" {
		classCode = "B"
	}
	return clip(r.CoreSymbol(name, 6) + marker + classCode + truncate(sanitize(focus), 1)), nil
}

// Derivative renders CORE.D{instrument}{tenor}.
func (r *Registry) Derivative(p DerivativeParams) (string, error) {
	underlying := firstNonEmpty(p.Underlying, p.Name)
	if err := requireName(underlying, TypeDerivative); err != nil {
		return "", err
	}
	inst, ok := instrumentCodes[strings.ToLower(strings.TrimSpace(p.Instrument))]
	if !ok && strings.TrimSpace(p.Instrument) != "" {
		inst = Abbreviate(p.Instrument, 1)
	}
	return clip(r.CoreSymbol(underlying, 4) + ".D" + inst + sanitize(p.Tenor)), nil
}

func (r *Registry) Crypto(p CryptoParams) (string, error) {
	if err := requireName(p.Name, TypeCrypto); err != nil {
		return "", err
	}
	return clip(r.CoreSymbol(p.Name, 8) + ".X"), nil
}

// NFT renders CORE.N{collection id}, with .{token id} while the symbol is short.
func (r *Registry) NFT(p NFTParams) (string, error) {
	collection := firstNonEmpty(p.Collection, p.Name)
	if err := requireName(collection, TypeNFT); err != nil {
		return "", err
	}
	id := sanitize(p.CollectionID)
	if id == "" {
		id = "1"
	}
	sym := r.CoreSymbol(collection, 4) + ".N" + id
	if token := sanitize(p.TokenID); token != "" && len(sym) <= 10 {
		sym += "." + token
	}
	return clip(sym), nil
}

func (r *Registry) Gadget(p GadgetParams) (string, error) {
	if err := requireName(p.Name, TypeGadget); err != nil {
		return "", err
	}
	owner := ""
	if strings.TrimSpace(p.Owner) != "" {
		owner = r.CoreSymbol(p.Owner, 3)
	}
	slot := p.Slot
	if slot <= 0 {
		slot = 1
	}
	return clip(fmt.Sprintf("%s.G%s%d", Abbreviate(p.Name, 4), owner, slot)), nil
}

func (r *Registry) Location(p LocationParams) (string, error) {
	if err := requireName(p.Name, TypeLocation); err != nil {
		return "", err
	}
	country := "US"
	if strings.TrimSpace(p.Country) != "" {
		country = Abbreviate(p.Country, 2)
	}
	city := ""
	if strings.TrimSpace(p.City) != "" {
		city = Abbreviate(p.City, 2)
	}
	return clip(r.CoreSymbol(p.Name, 4) + ".L" + country + city), nil
}

func (r *Registry) Pet(p PetParams) (string, error) {
	if err := requireName(p.Name, TypePet); err != nil {
		return "", err
	}
	owner := ""
	if strings.TrimSpace(p.Owner) != "" {
		owner = r.CoreSymbol(p.Owner, 3)
	}
	return clip(r.CoreSymbol(p.Name, 6) + ".P" + owner), nil
}

// Creator renders LAST.C{initials}{role}, e.g. "Stan Lee" as a writer is LEE.CSW.
func (r *Registry) Creator(p CreatorParams) (string, error) {
	if err := requireName(p.Name, TypeCreator); err != nil {
		return "", err
	}
	parts := strings.Fields(p.Name)
	last := truncate(sanitize(parts[len(parts)-1]), 4)
	if last == "" {
		last = HashToCode(p.Name, 4)
	}
	var initials strings.Builder
	for _, part := range parts[:len(parts)-1] {
		initials.WriteString(truncate(sanitize(part), 1))
	}
	role, ok := roleCodes[strings.ToLower(strings.TrimSpace(p.Role))]
	if !ok {
		role = "C"
	}
	return clip(last + ".C" + initials.String() + role), nil
}

func requireName(name string, t AssetType) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s name is required", ErrInvalidParams, t)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
