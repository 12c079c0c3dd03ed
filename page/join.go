package page

import (
	"go.mongodb.org/mongo-driver/bson"
)

// JoinOne returns the stages that replace the reference stored in field with
// the referenced document of the "from" collection, reduced to the
// projection. The field is set to null if the reference is missing or the
// referenced document does not exist.
func JoinOne(from, field string, projection bson.D) []bson.D {
	// prepare lookup pipeline
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$_id", "$$ref"}},
			}},
		}}},
		bson.D{{Key: "$limit", Value: 1}},
	}
	if len(projection) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: projection}})
	}

	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "let", Value: bson.D{{Key: "ref", Value: "$" + field}}},
			{Key: "pipeline", Value: pipeline},
			{Key: "as", Value: field},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: field, Value: bson.D{
				{Key: "$ifNull", Value: bson.A{
					bson.D{{Key: "$arrayElemAt", Value: bson.A{"$" + field, 0}}},
					nil,
				}},
			}},
		}}},
	}
}

// JoinMany returns the stage that attaches the documents of the "from"
// collection whose parent field references the row as an array under "as",
// in page order. The stages returned by each are applied to every attached
// document and the tree is expanded until the specified depth is reached.
// Documents of the deepest level carry an empty array. A depth of zero
// returns no stages.
func JoinMany(from, parent, as string, depth int, each func() []bson.D) []bson.D {
	// check depth
	if depth <= 0 {
		return nil
	}

	// prepare lookup pipeline
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$" + parent, "$$parent"}},
			}},
		}}},
		bson.D{{Key: "$sort", Value: Order()}},
	}

	// add per document stages
	if each != nil {
		for _, stage := range each() {
			pipeline = append(pipeline, stage)
		}
	}

	// add next level or close the tree with an empty list
	if depth > 1 {
		for _, stage := range JoinMany(from, parent, as, depth-1, each) {
			pipeline = append(pipeline, stage)
		}
	} else {
		pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: bson.D{
			{Key: as, Value: bson.A{}},
		}}})
	}

	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "let", Value: bson.D{{Key: "parent", Value: "$_id"}}},
			{Key: "pipeline", Value: pipeline},
			{Key: "as", Value: as},
		}}},
	}
}
