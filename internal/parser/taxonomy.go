package parser

import (
	"strings"
	"unicode"
)

// TaxonomyVersion changes whenever the category, alias or brand tables
// change, since parser output depends on them.
const TaxonomyVersion = "2024.3"

// Category is one entry of the gear taxonomy. The first subcategory is the
// default when nothing more specific matches.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

var taxonomy = []Category{
	{Name: "guitar", Subcategories: []string{"electric", "acoustic", "bass", "classical", "semi-hollow"}},
	{Name: "microphone", Subcategories: []string{"dynamic", "small-diaphragm", "condenser", "ribbon", "tube"}},
	{Name: "amplifier", Subcategories: []string{"combo", "head", "tube", "solid-state", "modeling", "bass"}},
	{Name: "cabinet", Subcategories: []string{"4x12", "2x12", "1x12", "bass", "isolation"}},
	{Name: "pedal", Subcategories: []string{"overdrive", "distortion", "fuzz", "delay", "reverb", "chorus", "compressor", "wah", "tuner"}},
	{Name: "keyboard", Subcategories: []string{"synthesizer", "piano", "organ", "drum-machine", "midi-controller"}},
	{Name: "drums", Subcategories: []string{"kit", "snare", "cymbal", "electronic", "percussion"}},
	{Name: "interface", Subcategories: []string{"usb", "thunderbolt", "converter"}},
	{Name: "outboard", Subcategories: []string{"compressor", "equalizer", "preamp", "reverb", "channel-strip"}},
	{Name: "monitor", Subcategories: []string{"nearfield", "midfield", "headphones", "subwoofer"}},
	{Name: "accessory", Subcategories: []string{"cable", "stand", "case", "power"}},
}

// categoryAliases maps normalised header text to a category name.
var categoryAliases = map[string]string{
	"guitar": "guitar", "guitars": "guitar", "gtr": "guitar", "gtrs": "guitar",
	"bass": "guitar", "basses": "guitar", "bass guitars": "guitar",
	"microphone": "microphone", "microphones": "microphone", "mic": "microphone", "mics": "microphone",
	"amplifier": "amplifier", "amplifiers": "amplifier", "amp": "amplifier", "amps": "amplifier", "heads": "amplifier",
	"cabinet": "cabinet", "cabinets": "cabinet", "cab": "cabinet", "cabs": "cabinet", "speaker cabinets": "cabinet",
	"pedal": "pedal", "pedals": "pedal", "effects": "pedal", "fx": "pedal", "stompboxes": "pedal",
	"keyboard": "keyboard", "keyboards": "keyboard", "keys": "keyboard", "synth": "keyboard", "synths": "keyboard", "synthesizers": "keyboard",
	"drums": "drums", "drum": "drums", "percussion": "drums", "kits": "drums",
	"interface": "interface", "interfaces": "interface", "audio interfaces": "interface", "converters": "interface",
	"outboard": "outboard", "outboard gear": "outboard", "rack": "outboard", "processors": "outboard",
	"monitor": "monitor", "monitors": "monitor", "speakers": "monitor", "headphones": "monitor",
	"accessory": "accessory", "accessories": "accessory", "cables": "accessory", "stands": "accessory",
}

// knownBrands lists recognised brands; order breaks ties between brands
// found at the same position.
var knownBrands = []string{
	"Universal Audio", "Electro-Harmonix", "Audio-Technica", "Electro-Voice", "Native Instruments",
	"Empirical Labs", "Warm Audio", "Walrus Audio", "Fractal Audio", "TC Electronic", "Mesa Boogie",
	"Adam Audio", "Line 6",
	"Fender", "Gibson", "Gretsch", "Rickenbacker", "PRS", "Ibanez", "Martin", "Taylor", "Epiphone", "Squier",
	"Shure", "AKG", "Neumann", "Sennheiser", "Royer", "Coles", "Beyerdynamic", "Rode", "Telefunken",
	"Marshall", "Vox", "Orange", "Ampeg", "Hiwatt", "Friedman", "Kemper",
	"Boss", "Strymon", "MXR", "Eventide", "JHS",
	"Moog", "Roland", "Korg", "Yamaha", "Nord", "Sequential", "Arturia",
	"Ludwig", "Pearl", "DW", "Tama", "Zildjian", "Sabian", "Meinl",
	"Focusrite", "Apogee", "RME", "MOTU", "Neve", "SSL", "API", "Teletronix", "Chandler",
	"Genelec", "KRK", "Focal", "Avantone", "Mogami", "Radial", "K&M",
}

// Categories returns the taxonomy in declaration order.
func Categories() []Category {
	out := make([]Category, len(taxonomy))
	for i, c := range taxonomy {
		out[i] = Category{Name: c.Name, Subcategories: append([]string(nil), c.Subcategories...)}
	}
	return out
}

// Brands returns the known brand list in match order.
func Brands() []string {
	return append([]string(nil), knownBrands...)
}

// IsCategory reports whether name is a taxonomy category.
func IsCategory(name string) bool {
	_, ok := subcategoriesOf(name)
	return ok
}

func subcategoriesOf(category string) ([]string, bool) {
	for _, c := range taxonomy {
		if c.Name == category {
			return c.Subcategories, true
		}
	}
	return nil, false
}

// ResolveCategory maps free-form category text (a header or an explicit
// override) to a taxonomy category.
func ResolveCategory(text string) (string, bool) {
	key := normalizeHeader(text)
	if key == "" {
		return "", false
	}
	category, ok := categoryAliases[key]
	return category, ok
}

// normalizeHeader lower-cases text, drops punctuation and collapses spaces.
func normalizeHeader(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// InferSubcategory picks the first subcategory of category whose hyphen
// separated parts all occur in text, falling back to the first one.
func InferSubcategory(category, text string) string {
	subs, ok := subcategoriesOf(category)
	if !ok || len(subs) == 0 {
		return ""
	}
	haystack := strings.ToLower(text)
	for _, sub := range subs {
		matched := true
		for _, part := range strings.Split(sub, "-") {
			if !strings.Contains(haystack, part) {
				matched = false
				break
			}
		}
		if matched {
			return sub
		}
	}
	return subs[0]
}
