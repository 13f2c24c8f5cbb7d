package postgres

import (
	"strings"

	"github.com/MichaelKMarwa/recupio/internal/domain"
)

// metersPerMile converts a search radius in miles to PostGIS meters.
const metersPerMile = 1609.34

// facilityQuery is a selectQuery over facilities with the filters the
// directory endpoints share.
type facilityQuery struct {
	selectQuery
}

func newFacilityQuery() *facilityQuery {
	return &facilityQuery{selectQuery{table: "facilities f"}}
}

// facilitySelect lists the facility columns plus the aggregated type and
// accepted item names, in scan order.
const facilitySelect = `SELECT f.id, f.name, COALESCE(f.description, ''), f.address, f.city, f.state, f.zip_code,
	COALESCE(f.phone, ''), COALESCE(f.website, ''), COALESCE(f.email, ''), COALESCE(f.image_url, ''),
	f.is_verified, f.created_at,
	COALESCE((SELECT array_agg(ft.name ORDER BY ft.name) FROM facility_type_mappings ftm
		JOIN facility_types ft ON ft.id = ftm.type_id WHERE ftm.facility_id = f.id), '{}') AS types,
	COALESCE((SELECT array_agg(i.name ORDER BY i.name) FROM facility_items fi
		JOIN items i ON i.id = fi.item_id WHERE fi.facility_id = f.id), '{}') AS accepted_items`

func (q *facilityQuery) withType(t string) {
	if t == "" {
		return
	}
	q.where(`EXISTS (SELECT 1 FROM facility_type_mappings ftm JOIN facility_types ft ON ft.id = ftm.type_id
		WHERE ftm.facility_id = f.id AND ft.name = %s)`, t)
}

func (q *facilityQuery) withZipCode(zip string) {
	if zip == "" {
		return
	}
	q.where(`f.zip_code = %s`, zip)
}

// compileFacilityList builds the count and page statements for filter. Both
// share the same arguments; the page statement appends limit and offset.
func compileFacilityList(filter domain.FacilityFilter) (countSQL, listSQL string, countArgs, listArgs []any) {
	q := newFacilityQuery()
	q.withType(filter.Type)
	if filter.City != "" {
		q.where(`f.city = %s`, filter.City)
	}
	q.withZipCode(filter.ZipCode)
	if len(filter.ItemIDs) > 0 {
		q.where(`EXISTS (SELECT 1 FROM facility_items fi WHERE fi.facility_id = f.id AND fi.item_id = ANY(%s::uuid[]))`, filter.ItemIDs)
	}
	if filter.Lat != nil && filter.Lng != nil && filter.Radius != nil {
		q.where(`ST_DWithin(f.location, ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography, %s)`,
			*filter.Lng, *filter.Lat, *filter.Radius*metersPerMile)
	}

	from := q.from()
	countSQL = `SELECT COUNT(*)` + from
	countArgs = append([]any(nil), q.args...)

	limit := q.bind(filter.Limit)
	offset := q.bind(filter.Offset)
	listSQL = facilitySelect + from + ` ORDER BY f.name ASC LIMIT ` + limit + ` OFFSET ` + offset
	return countSQL, listSQL, countArgs, q.args
}

// compileFacilitySearch builds the free-text search statement.
func compileFacilitySearch(text, facilityType, zipCode string) (string, []any) {
	q := newFacilityQuery()
	q.withType(facilityType)
	q.where(`(f.name ILIKE %s OR f.address ILIKE %[1]s)`, "%"+escapeLike(text)+"%")
	q.withZipCode(zipCode)
	return facilitySelect + q.from() + ` ORDER BY f.name ASC`, q.args
}

// compileBestMatch builds the aggregation ranking facilities by how many of
// itemIDs they accept. The match count is the last selected column.
func compileBestMatch(itemIDs []string, zipCode string) (string, []any) {
	q := newFacilityQuery()
	q.join(`JOIN facility_items fm ON fm.facility_id = f.id`)
	q.where(`fm.item_id = ANY(%s::uuid[])`, itemIDs)
	q.withZipCode(zipCode)
	q.groups = []string{"f.id"}
	return facilitySelect + `, COUNT(fm.item_id) AS match_count` + q.from() +
		` ORDER BY match_count DESC, f.name ASC LIMIT 1`, q.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes wildcard characters in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
