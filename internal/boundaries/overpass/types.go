package overpass

// Element is one relation row from an Overpass JSON response.
type Element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

// response is the envelope Overpass returns for [out:json] queries.
type response struct {
	Elements []Element `json:"elements"`
}
