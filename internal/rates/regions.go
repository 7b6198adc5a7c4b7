package rates

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ratedesk/internal/model"
)

// Static market reference data. Loaded once; read-only for the process
// lifetime, so concurrent readers need no locking.

// Region is one of the eight macro-regions lanes are benchmarked between.
type Region string

const (
	Northeast    Region = "northeast"
	MidAtlantic  Region = "mid_atlantic"
	Southeast    Region = "southeast"
	Midwest      Region = "midwest"
	SouthCentral Region = "south_central"
	Plains       Region = "plains"
	Mountain     Region = "mountain"
	Pacific      Region = "pacific"
)

// stateRegions maps two-letter state codes to macro-regions.
var stateRegions = map[string]Region{
	"CT": Northeast, "ME": Northeast, "MA": Northeast, "NH": Northeast,
	"RI": Northeast, "VT": Northeast, "NY": Northeast, "NJ": Northeast,

	"PA": MidAtlantic, "DE": MidAtlantic, "MD": MidAtlantic, "DC": MidAtlantic,
	"VA": MidAtlantic, "WV": MidAtlantic,

	"NC": Southeast, "SC": Southeast, "GA": Southeast, "FL": Southeast,
	"AL": Southeast, "MS": Southeast, "TN": Southeast, "KY": Southeast,

	"OH": Midwest, "IN": Midwest, "IL": Midwest, "MI": Midwest, "WI": Midwest,
	"MN": Midwest, "IA": Midwest, "MO": Midwest,

	"TX": SouthCentral, "OK": SouthCentral, "AR": SouthCentral, "LA": SouthCentral,

	"ND": Plains, "SD": Plains, "NE": Plains, "KS": Plains,

	"MT": Mountain, "WY": Mountain, "CO": Mountain, "NM": Mountain,
	"AZ": Mountain, "UT": Mountain, "ID": Mountain, "NV": Mountain,

	"WA": Pacific, "OR": Pacific, "CA": Pacific,
}

// RegionForState resolves a state code to its macro-region.
// Unknown or empty states resolve to "", the null region.
func RegionForState(state string) Region {
	return stateRegions[strings.ToUpper(strings.TrimSpace(state))]
}

// regionProfile holds the supply/demand characteristics of one region,
// each on a 1-10 scale.
type regionProfile struct {
	OutboundStrength float64
	InboundStrength  float64
	TruckPopulation  float64
	MajorLane        bool
}

var regionProfiles = map[Region]regionProfile{
	Northeast:    {OutboundStrength: 5, InboundStrength: 9, TruckPopulation: 7, MajorLane: true},
	MidAtlantic:  {OutboundStrength: 6, InboundStrength: 7, TruckPopulation: 6, MajorLane: true},
	Southeast:    {OutboundStrength: 8, InboundStrength: 7, TruckPopulation: 6, MajorLane: true},
	Midwest:      {OutboundStrength: 8, InboundStrength: 6, TruckPopulation: 8, MajorLane: true},
	SouthCentral: {OutboundStrength: 9, InboundStrength: 6, TruckPopulation: 6, MajorLane: true},
	Plains:       {OutboundStrength: 7, InboundStrength: 3, TruckPopulation: 3},
	Mountain:     {OutboundStrength: 3, InboundStrength: 5, TruckPopulation: 6},
	Pacific:      {OutboundStrength: 6, InboundStrength: 8, TruckPopulation: 8, MajorLane: true},
}

// returnPotentials rate the odds of finding a paying load out of a region.
var returnPotentials = map[Region]model.ReturnLoadPotential{
	Northeast:    {Score: 6.0, Rating: "fair", AvgLoadsPerDay: 820},
	MidAtlantic:  {Score: 7.0, Rating: "good", AvgLoadsPerDay: 940},
	Southeast:    {Score: 8.0, Rating: "good", AvgLoadsPerDay: 1460},
	Midwest:      {Score: 9.0, Rating: "excellent", AvgLoadsPerDay: 1880},
	SouthCentral: {Score: 8.5, Rating: "excellent", AvgLoadsPerDay: 1720},
	Plains:       {Score: 5.0, Rating: "fair", AvgLoadsPerDay: 410},
	Mountain:     {Score: 3.5, Rating: "poor", AvgLoadsPerDay: 260},
	Pacific:      {Score: 6.5, Rating: "fair", AvgLoadsPerDay: 890},
}

// defaultReturnPotential is used when the destination region is unknown.
var defaultReturnPotential = model.ReturnLoadPotential{Score: 5.0, Rating: "fair", AvgLoadsPerDay: 500}

// DefaultBenchmark is the published fallback for unknown region pairs,
// applied before any multipliers.
var DefaultBenchmark = model.RateBenchmark{Low: 1.85, Mid: 2.20, High: 2.60}

// laneBenchmarks holds base $/mile bands for known region pairs.
// Overridable at startup via LoadLaneBenchmarks.
var laneBenchmarks = map[lane]model.RateBenchmark{
	{SouthCentral, Southeast}:  {Low: 1.70, Mid: 1.95, High: 2.40},
	{Southeast, SouthCentral}:  {Low: 1.80, Mid: 2.10, High: 2.50},
	{SouthCentral, Midwest}:    {Low: 1.85, Mid: 2.15, High: 2.55},
	{Midwest, SouthCentral}:    {Low: 1.75, Mid: 2.05, High: 2.45},
	{Midwest, Northeast}:       {Low: 2.10, Mid: 2.45, High: 2.90},
	{Northeast, Midwest}:       {Low: 1.70, Mid: 2.00, High: 2.35},
	{Midwest, Southeast}:       {Low: 1.90, Mid: 2.20, High: 2.60},
	{Southeast, Midwest}:       {Low: 1.85, Mid: 2.15, High: 2.50},
	{Southeast, Northeast}:     {Low: 2.05, Mid: 2.40, High: 2.85},
	{Northeast, Southeast}:     {Low: 1.60, Mid: 1.90, High: 2.25},
	{MidAtlantic, Southeast}:   {Low: 1.75, Mid: 2.05, High: 2.40},
	{Southeast, MidAtlantic}:   {Low: 1.95, Mid: 2.25, High: 2.65},
	{MidAtlantic, Northeast}:   {Low: 2.00, Mid: 2.35, High: 2.75},
	{Northeast, MidAtlantic}:   {Low: 1.80, Mid: 2.10, High: 2.45},
	{SouthCentral, Mountain}:   {Low: 1.95, Mid: 2.30, High: 2.70},
	{Mountain, SouthCentral}:   {Low: 1.55, Mid: 1.85, High: 2.20},
	{Mountain, Pacific}:        {Low: 1.65, Mid: 1.95, High: 2.30},
	{Pacific, Mountain}:        {Low: 2.00, Mid: 2.35, High: 2.75},
	{Pacific, SouthCentral}:    {Low: 1.90, Mid: 2.20, High: 2.60},
	{SouthCentral, Pacific}:    {Low: 2.05, Mid: 2.40, High: 2.85},
	{Midwest, Plains}:          {Low: 1.60, Mid: 1.90, High: 2.25},
	{Plains, Midwest}:          {Low: 1.70, Mid: 2.00, High: 2.35},
	{Pacific, Midwest}:         {Low: 2.10, Mid: 2.45, High: 2.90},
	{Midwest, Pacific}:         {Low: 1.95, Mid: 2.30, High: 2.70},
}

type lane struct {
	From, To Region
}

// Benchmark returns the base band for a region pair, or the published
// default when either region is unknown or the pair has no table entry.
func Benchmark(from, to Region) (model.RateBenchmark, bool) {
	if from == "" || to == "" {
		return DefaultBenchmark, false
	}
	if b, ok := laneBenchmarks[lane{from, to}]; ok {
		return b, true
	}
	return DefaultBenchmark, false
}

// equipmentPremiums key the market-side equipment multiplier. Dry van is
// the baseline; anything unlisted prices as dry van.
var equipmentPremiums = map[model.FreightClass]float64{
	model.FreightDryVan:      1.00,
	model.FreightReefer:      1.20,
	model.FreightFlatbed:     1.15,
	model.FreightSpecialized: 1.45,
	model.FreightHazmat:      1.35,
}

// EquipmentMultiplier returns the market premium for a freight class.
func EquipmentMultiplier(fc model.FreightClass) float64 {
	if m, ok := equipmentPremiums[fc]; ok {
		return m
	}
	return 1.0
}

// seasonalCalendar maps pickup month to one of six demand bands.
var seasonalCalendar = [13]float64{
	0,    // unused
	0.88, // Jan: post-holiday slump
	0.88,
	0.96, // Mar: spring ramp
	0.96,
	1.10, // May: produce season
	1.10,
	1.04, // Jul: summer plateau
	1.04,
	1.14, // Sep: pre-holiday retail push
	1.14,
	1.22, // Nov: peak season
	1.22,
}

// SeasonalMultiplier returns the demand band for a pickup month (1-12).
func SeasonalMultiplier(month int) float64 {
	if month < 1 || month > 12 {
		return 1.0
	}
	return seasonalCalendar[month]
}

// DistanceMultiplier prices the length-of-haul curve: short hauls command
// a premium, long hauls discount slightly.
func DistanceMultiplier(miles float64) float64 {
	switch {
	case miles < 100:
		return 1.50
	case miles < 150:
		return 1.35
	case miles < 300:
		return 1.20
	case miles < 600:
		return 1.10
	case miles < 1000:
		return 1.00
	case miles < 1500:
		return 0.97
	case miles < 1800:
		return 0.95
	default:
		return 0.90
	}
}

// benchmarkFile is the YAML shape for lane benchmark overrides.
type benchmarkFile struct {
	Lanes []struct {
		From string  `yaml:"from"`
		To   string  `yaml:"to"`
		Low  float64 `yaml:"low"`
		Mid  float64 `yaml:"mid"`
		High float64 `yaml:"high"`
	} `yaml:"lanes"`
}

// LoadLaneBenchmarks replaces lane benchmark entries from a YAML file.
// Intended for startup only; the tables are read-only afterwards.
func LoadLaneBenchmarks(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var f benchmarkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, err
	}
	n := 0
	for _, l := range f.Lanes {
		from := Region(strings.ToLower(strings.TrimSpace(l.From)))
		to := Region(strings.ToLower(strings.TrimSpace(l.To)))
		if from == "" || to == "" || l.Low <= 0 || l.Mid < l.Low || l.High < l.Mid {
			continue
		}
		laneBenchmarks[lane{from, to}] = model.RateBenchmark{Low: l.Low, Mid: l.Mid, High: l.High}
		n++
	}
	return n, nil
}
