package generator

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vitebski/mongo-dummy-seeder/pkg/models"
)

const patternAttempts = 20

// Config tunes the distribution policy of generated data. These are
// quality knobs, not correctness ones.
type Config struct {
	// OptionalProbability is the chance an optional field is populated.
	OptionalProbability float64
	// EnumSkew biases enum draws toward earlier values when no explicit
	// weights are declared. Value i gets weight EnumSkew^i; with two
	// values the default yields roughly a 70/30 split.
	EnumSkew float64
	// RecencyWindow bounds generated dates to [now-window, now], with a
	// quadratic bias toward recent timestamps.
	RecencyWindow time.Duration
	// Now anchors date generation. Zero means the wall clock at
	// generator construction; set it explicitly for reproducible runs.
	Now time.Time
}

// DefaultConfig returns the distribution policy used when callers pass
// a zero Config.
func DefaultConfig() Config {
	return Config{
		OptionalProbability: 0.8,
		EnumSkew:            0.45,
		RecencyWindow:       90 * 24 * time.Hour,
	}
}

// DocumentGenerator produces synthetic documents for a collection schema.
type DocumentGenerator struct {
	Faker  faker.Faker
	Logger *logrus.Logger

	rng *rand.Rand
	cfg Config
	now time.Time
}

// NewDocumentGenerator creates a generator with pseudo-random output per
// run.
func NewDocumentGenerator(cfg Config, logger *logrus.Logger) *DocumentGenerator {
	return newGenerator(rand.New(rand.NewSource(time.Now().UnixNano())), cfg, logger)
}

// NewSeededDocumentGenerator creates a deterministic generator: the same
// seed, schema and identifier pools produce identical documents,
// ObjectIDs included.
func NewSeededDocumentGenerator(seed int64, cfg Config, logger *logrus.Logger) *DocumentGenerator {
	return newGenerator(rand.New(rand.NewSource(seed)), cfg, logger)
}

func newGenerator(rng *rand.Rand, cfg Config, logger *logrus.Logger) *DocumentGenerator {
	def := DefaultConfig()
	if cfg.OptionalProbability <= 0 {
		cfg.OptionalProbability = def.OptionalProbability
	}
	if cfg.EnumSkew <= 0 || cfg.EnumSkew > 1 {
		cfg.EnumSkew = def.EnumSkew
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = def.RecencyWindow
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &DocumentGenerator{
		Faker:  faker.NewWithSeed(rng),
		Logger: logger,
		rng:    rng,
		cfg:    cfg,
		now:    now,
	}
}

// Generate produces exactly n documents for the collection schema.
// Reference fields draw only from the supplied identifier pools; an
// empty pool behind a required reference is a ReferenceIntegrityError.
func (dg *DocumentGenerator) Generate(
	cs *models.CollectionSchema,
	n int,
	pools map[string][]primitive.ObjectID,
) ([]bson.M, error) {
	fieldNames := sortedFieldNames(cs.Fields)
	docs := make([]bson.M, 0, n)

	for i := 0; i < n; i++ {
		doc := bson.M{"_id": dg.newObjectID()}

		for _, name := range fieldNames {
			spec := cs.Fields[name]
			if !spec.Required && dg.rng.Float64() >= dg.cfg.OptionalProbability {
				continue
			}

			value, err := dg.generateField(cs.Name, name, &spec, pools)
			if err != nil {
				return nil, err
			}
			if value != nil {
				doc[name] = value
			}
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// newObjectID draws the identifier bytes from the generator's RNG so
// seeded runs stay byte-identical.
func (dg *DocumentGenerator) newObjectID() primitive.ObjectID {
	var id primitive.ObjectID
	dg.rng.Read(id[:])
	return id
}

func (dg *DocumentGenerator) generateField(
	collection, field string,
	spec *models.FieldSpec,
	pools map[string][]primitive.ObjectID,
) (interface{}, error) {
	switch spec.Type {
	case models.FieldTypeString:
		return dg.generateString(field, spec), nil
	case models.FieldTypeInt:
		return dg.generateInt(spec), nil
	case models.FieldTypeDouble:
		return dg.generateDouble(spec), nil
	case models.FieldTypeBool:
		return dg.rng.Intn(2) == 1, nil
	case models.FieldTypeDate:
		return dg.generateDate(), nil
	case models.FieldTypeObjectID:
		return dg.newObjectID(), nil
	case models.FieldTypeEnum:
		return dg.generateEnum(spec), nil
	case models.FieldTypeReference:
		return dg.generateReference(collection, field, spec, pools)
	case models.FieldTypeArray:
		return dg.generateArray(collection, field, spec, pools)
	case models.FieldTypeObject:
		return dg.generateObject(collection, field, spec, pools)
	default:
		dg.Logger.Warningf("No generator for field type %s, using word", spec.Type)
		return dg.Faker.Lorem().Word(), nil
	}
}

// generateString picks a semantically plausible value from the field
// name where possible, then enforces the declared constraints.
func (dg *DocumentGenerator) generateString(field string, spec *models.FieldSpec) string {
	if spec.Pattern != "" {
		return dg.generatePatternString(field, spec)
	}

	if value, ok := dg.semanticString(field); ok && withinLength(value, spec) {
		return value
	}
	return dg.sizedString(spec)
}

// semanticString mirrors the column-name heuristics used for realistic
// values: emails look like emails, cities like cities.
func (dg *DocumentGenerator) semanticString(field string) (string, bool) {
	name := strings.ToLower(field)

	switch {
	case strings.Contains(name, "email"):
		return dg.Faker.Internet().Email(), true
	case strings.Contains(name, "name") && !strings.Contains(name, "file"):
		switch {
		case strings.Contains(name, "first"):
			return dg.Faker.Person().FirstName(), true
		case strings.Contains(name, "last"):
			return dg.Faker.Person().LastName(), true
		case strings.Contains(name, "user"):
			return dg.Faker.Internet().User(), true
		case strings.Contains(name, "company") || strings.Contains(name, "business"):
			return dg.Faker.Company().Name(), true
		default:
			return dg.Faker.Person().Name(), true
		}
	case strings.Contains(name, "phone"):
		return dg.Faker.Phone().Number(), true
	case strings.Contains(name, "address"):
		return dg.Faker.Address().StreetAddress(), true
	case strings.Contains(name, "city"):
		return dg.Faker.Address().City(), true
	case strings.Contains(name, "state"):
		return dg.Faker.Address().State(), true
	case strings.Contains(name, "country"):
		return dg.Faker.Address().Country(), true
	case strings.Contains(name, "zip") || strings.Contains(name, "postal"):
		return dg.Faker.Address().PostCode(), true
	case strings.Contains(name, "description") || strings.Contains(name, "summary"):
		return dg.Faker.Lorem().Paragraph(2), true
	case strings.Contains(name, "title"):
		return dg.Faker.Lorem().Sentence(4), true
	case strings.Contains(name, "url") || strings.Contains(name, "website"):
		return dg.Faker.Internet().URL(), true
	case strings.Contains(name, "ip"):
		return dg.Faker.Internet().Ipv4(), true
	case strings.Contains(name, "password"):
		return dg.Faker.Internet().Password(), true
	case strings.Contains(name, "token"):
		return dg.Faker.RandomStringWithLength(32), true
	case strings.Contains(name, "uuid"):
		return dg.Faker.UUID().V4(), true
	default:
		return "", false
	}
}

func (dg *DocumentGenerator) sizedString(spec *models.FieldSpec) string {
	minLen := 1
	maxLen := 24
	if spec.MinLength != nil {
		minLen = *spec.MinLength
	}
	if spec.MaxLength != nil {
		maxLen = *spec.MaxLength
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	length := minLen
	if maxLen > minLen {
		length += dg.rng.Intn(maxLen - minLen + 1)
	}
	if length <= 0 {
		return ""
	}

	// Prefer word-shaped output for mid-sized fields.
	if spec.MinLength == nil && spec.MaxLength == nil {
		return dg.Faker.Lorem().Word()
	}
	return dg.Faker.RandomStringWithLength(length)
}

// generatePatternString proposes candidates and keeps the first one
// matching the declared pattern. Generic regex inversion is out of
// scope; semantic values satisfy the common cases.
func (dg *DocumentGenerator) generatePatternString(field string, spec *models.FieldSpec) string {
	re, err := regexp.Compile(spec.Pattern)
	if err != nil {
		// Validate rejects bad patterns up front.
		dg.Logger.Warningf("Invalid pattern on field %s: %v", field, err)
		return dg.sizedString(spec)
	}

	var candidate string
	for i := 0; i < patternAttempts; i++ {
		if value, ok := dg.semanticString(field); ok && i < patternAttempts/2 {
			candidate = value
		} else {
			candidate = dg.sizedString(spec)
		}
		if re.MatchString(candidate) && withinLength(candidate, spec) {
			return candidate
		}
	}

	dg.Logger.Warningf("Could not satisfy pattern %q for field %s after %d attempts",
		spec.Pattern, field, patternAttempts)
	return candidate
}

func (dg *DocumentGenerator) generateInt(spec *models.FieldSpec) int64 {
	min := int64(0)
	max := int64(1_000_000)
	if spec.Min != nil {
		min = int64(*spec.Min)
	}
	if spec.Max != nil {
		max = int64(*spec.Max)
	}
	if max <= min {
		return min
	}
	return min + dg.rng.Int63n(max-min+1)
}

func (dg *DocumentGenerator) generateDouble(spec *models.FieldSpec) float64 {
	min := 0.0
	max := 1000.0
	if spec.Min != nil {
		min = *spec.Min
	}
	if spec.Max != nil {
		max = *spec.Max
	}
	if max <= min {
		return min
	}
	return min + dg.rng.Float64()*(max-min)
}

// generateDate returns a timestamp in the recency window, biased toward
// recent values.
func (dg *DocumentGenerator) generateDate() time.Time {
	r := dg.rng.Float64()
	offset := time.Duration(r * r * float64(dg.cfg.RecencyWindow))
	return dg.now.Add(-offset).Truncate(time.Millisecond)
}

func (dg *DocumentGenerator) generateEnum(spec *models.FieldSpec) string {
	if len(spec.Values) == 0 {
		return ""
	}

	weights := spec.Weights
	if len(weights) != len(spec.Values) {
		weights = make([]float64, len(spec.Values))
		w := 1.0
		for i := range weights {
			weights[i] = w
			w *= dg.cfg.EnumSkew
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	target := dg.rng.Float64() * total
	for i, w := range weights {
		target -= w
		if target < 0 {
			return spec.Values[i]
		}
	}
	return spec.Values[len(spec.Values)-1]
}

func (dg *DocumentGenerator) generateReference(
	collection, field string,
	spec *models.FieldSpec,
	pools map[string][]primitive.ObjectID,
) (interface{}, error) {
	pool := pools[spec.Ref]
	if len(pool) == 0 {
		if spec.Required {
			return nil, &models.ReferenceIntegrityError{
				Collection: collection,
				Field:      field,
				DependsOn:  spec.Ref,
			}
		}
		return nil, nil
	}
	return pool[dg.rng.Intn(len(pool))], nil
}

func (dg *DocumentGenerator) generateArray(
	collection, field string,
	spec *models.FieldSpec,
	pools map[string][]primitive.ObjectID,
) (interface{}, error) {
	minItems := spec.MinItems
	maxItems := spec.MaxItems
	if maxItems <= 0 {
		maxItems = minItems + 3
	}
	count := minItems
	if maxItems > minItems {
		count += dg.rng.Intn(maxItems - minItems + 1)
	}

	items := make(bson.A, 0, count)
	for i := 0; i < count; i++ {
		value, err := dg.generateField(collection, field, spec.Items, pools)
		if err != nil {
			return nil, err
		}
		if value != nil {
			items = append(items, value)
		}
	}
	return items, nil
}

func (dg *DocumentGenerator) generateObject(
	collection, field string,
	spec *models.FieldSpec,
	pools map[string][]primitive.ObjectID,
) (interface{}, error) {
	obj := bson.M{}
	for _, name := range sortedFieldNames(spec.Fields) {
		sub := spec.Fields[name]
		if !sub.Required && dg.rng.Float64() >= dg.cfg.OptionalProbability {
			continue
		}
		value, err := dg.generateField(collection, fmt.Sprintf("%s.%s", field, name), &sub, pools)
		if err != nil {
			return nil, err
		}
		if value != nil {
			obj[name] = value
		}
	}
	return obj, nil
}

func withinLength(value string, spec *models.FieldSpec) bool {
	if spec.MinLength != nil && len(value) < *spec.MinLength {
		return false
	}
	if spec.MaxLength != nil && len(value) > *spec.MaxLength {
		return false
	}
	return true
}

func sortedFieldNames(fields map[string]models.FieldSpec) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
