package symbols

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type AssetType string

const (
	TypeComic      AssetType = "comic"
	TypeCharacter  AssetType = "character"
	TypeVillain    AssetType = "villain"
	TypeSidekick   AssetType = "sidekick"
	TypeBond       AssetType = "bond"
	TypeOption     AssetType = "option"
	TypeFund       AssetType = "fund"
	TypeETF        AssetType = "etf"
	TypeDerivative AssetType = "derivative"
	TypeCrypto     AssetType = "crypto"
	TypeNFT        AssetType = "nft"
	TypeGadget     AssetType = "gadget"
	TypeLocation   AssetType = "location"
	TypePet        AssetType = "pet"
	TypeCreator    AssetType = "creator"
)

// ParseAssetType lowercases s and folds the "hero" alias into TypeCharacter.
// Unknown tags are returned as-is and generate through the generic fallback.
func ParseAssetType(s string) AssetType {
	t := AssetType(strings.ToLower(strings.TrimSpace(s)))
	if t == "hero" {
		return TypeCharacter
	}
	return t
}

// AssetTypes lists every type with a dedicated generator.
func AssetTypes() []AssetType {
	return []AssetType{
		TypeComic, TypeCharacter, TypeVillain, TypeSidekick, TypeBond,
		TypeOption, TypeFund, TypeETF, TypeDerivative, TypeCrypto,
		TypeNFT, TypeGadget, TypeLocation, TypePet, TypeCreator,
	}
}

// Params carries the typed inputs of one generator.
type Params interface {
	AssetType() AssetType
}

// ComicParams names a comic by Series, falling back to Title then Name.
type ComicParams struct {
	Name   string `json:"name,omitempty"`
	Series string `json:"series,omitempty"`
	Title  string `json:"title,omitempty"`
	Volume int    `json:"volume,omitempty"`
	Issue  int    `json:"issue,omitempty"`
	Era    string `json:"era,omitempty"`
}

type CharacterParams struct {
	Name string `json:"name"`
}

type VillainParams struct {
	Name string `json:"name"`
}

type SidekickParams struct {
	Name string `json:"name"`
}

type BondParams struct {
	Name         string  `json:"name,omitempty"`
	Issuer       string  `json:"issuer,omitempty"`
	CouponRate   float64 `json:"coupon_rate"`
	MaturityYear int     `json:"maturity_year"`
}

// OptionParams identifies the expiry either by a preformatted ExpiryCode
// (MMDD) or an ISO date in Expiry.
type OptionParams struct {
	Name       string   `json:"name,omitempty"`
	Underlying string   `json:"underlying,omitempty"`
	Expiry     string   `json:"expiry,omitempty"`
	ExpiryCode string   `json:"expiry_code,omitempty"`
	Strike     *float64 `json:"strike,omitempty"`
	OptionType string   `json:"option_type,omitempty"`
}

type FundParams struct {
	Name      string `json:"name"`
	FundClass string `json:"fund_class,omitempty"`
	Focus     string `json:"focus,omitempty"`
}

type ETFParams struct {
	Name     string `json:"name"`
	ETFClass string `json:"etf_class,omitempty"`
	Focus    string `json:"focus,omitempty"`
}

type DerivativeParams struct {
	Name       string `json:"name,omitempty"`
	Underlying string `json:"underlying,omitempty"`
	Instrument string `json:"instrument,omitempty"`
	Tenor      string `json:"tenor,omitempty"`
}

type CryptoParams struct {
	Name string `json:"name"`
}

type NFTParams struct {
	Name         string `json:"name,omitempty"`
	Collection   string `json:"collection,omitempty"`
	CollectionID string `json:"collection_id,omitempty"`
	TokenID      string `json:"token_id,omitempty"`
}

type GadgetParams struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
	Slot  int    `json:"slot,omitempty"`
}

type LocationParams struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

type PetParams struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

type CreatorParams struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// GenericParams covers asset types without a dedicated generator.
type GenericParams struct {
	Type AssetType `json:"type"`
	Name string    `json:"name"`
}

func (ComicParams) AssetType() AssetType      { return TypeComic }
func (CharacterParams) AssetType() AssetType  { return TypeCharacter }
func (VillainParams) AssetType() AssetType    { return TypeVillain }
func (SidekickParams) AssetType() AssetType   { return TypeSidekick }
func (BondParams) AssetType() AssetType       { return TypeBond }
func (OptionParams) AssetType() AssetType     { return TypeOption }
func (FundParams) AssetType() AssetType       { return TypeFund }
func (ETFParams) AssetType() AssetType        { return TypeETF }
func (DerivativeParams) AssetType() AssetType { return TypeDerivative }
func (CryptoParams) AssetType() AssetType     { return TypeCrypto }
func (NFTParams) AssetType() AssetType        { return TypeNFT }
func (GadgetParams) AssetType() AssetType     { return TypeGadget }
func (LocationParams) AssetType() AssetType   { return TypeLocation }
func (PetParams) AssetType() AssetType        { return TypePet }
func (CreatorParams) AssetType() AssetType    { return TypeCreator }
func (p GenericParams) AssetType() AssetType  { return p.Type }

// DecodeParams decodes raw into the params struct for typ. Unknown fields
// are ignored so stored asset metadata can be decoded directly. An empty raw
// yields zero-valued params.
func DecodeParams(typ string, raw json.RawMessage) (Params, error) {
	t := ParseAssetType(typ)
	g, ok := generators[t]
	if !ok {
		p := GenericParams{Type: t}
		if err := decodeInto(raw, &p); err != nil {
			return nil, err
		}
		p.Type = t
		return p, nil
	}
	return g.decode(raw)
}

// decodeWithName decodes raw for typ and fills "name" from name when the
// payload does not carry one.
func decodeWithName(typ, name string, raw json.RawMessage) (Params, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidParams, err)
		}
	}
	if existing, ok := fields["name"]; !ok || bytes.Equal(existing, []byte(`""`)) {
		encoded, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		fields["name"] = encoded
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return DecodeParams(typ, merged)
}

func decodeInto(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
