package card

// Ref is the runtime handle of one physical card.
//
// InstanceID is assigned once when the card enters the engine and never
// changes. DefinitionID changes exactly once, when the card is upgraded.
type Ref struct {
	InstanceID   string `json:"instance_id"`
	DefinitionID string `json:"definition_id"`
	Upgraded     bool   `json:"upgraded"`
}
