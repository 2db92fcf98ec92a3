package domain

// SearchHit identifies a restaurant record in the key-value store.
type SearchHit struct {
	PK string `json:"PK"`
	SK string `json:"SK"`
}

// Restaurant is the user-facing view of a stored restaurant record. The
// store's PK, SK and id attributes are deliberately not part of it.
type Restaurant struct {
	Name        string      `json:"name"         dynamodbav:"name"`
	Cuisine     string      `json:"cuisine"      dynamodbav:"restaurant_type"`
	Address     string      `json:"address"      dynamodbav:"address"`
	ZipCode     string      `json:"zip_code"     dynamodbav:"zip_code"`
	Phone       string      `json:"phone"        dynamodbav:"display_phone"`
	Rating      float64     `json:"rating"       dynamodbav:"rating"`
	ReviewCount int         `json:"review_count" dynamodbav:"review_count"`
	URL         string      `json:"url"          dynamodbav:"url"`
	Coordinates Coordinates `json:"coordinates"  dynamodbav:"coordinates"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"  dynamodbav:"latitude"`
	Longitude float64 `json:"longitude" dynamodbav:"longitude"`
}
