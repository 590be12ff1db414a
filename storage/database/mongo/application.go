package mongodb

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
)

var orderingFields = map[string]string{
	application.OrderApplicationDate: "applicationDate",
	application.OrderReferenceNumber: "referenceNumber",
}

type applicationRepository struct {
	coll *mongo.Collection
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *mongo.Database) *applicationRepository {
	return &applicationRepository{coll: db.Collection(ApplicationsCollection)}
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if app.ID == "" {
		app.ID = primitive.NewObjectID().Hex()
	}
	app.ApplicationDate = app.ApplicationDate.UTC()
	if _, err := repo.coll.InsertOne(ctx, app); err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (application.Application, error) {
	var app application.Application
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&app); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "finding application by ID")
	}
	return app, nil
}

// queryDoc translates `filter` into a mongo query document.
func queryDoc(filter application.QueryFilter) bson.M {
	var conds bson.A

	if filter.Unlinked {
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"studentId": bson.M{"$exists": false}},
			bson.M{"studentId": nil},
			bson.M{"studentId": ""},
		}})
	}
	if filter.StudentID != "" {
		conds = append(conds, bson.M{"studentId": filter.StudentID})
	}
	if filter.Email != "" {
		conds = append(conds, bson.M{"applicant.email": filter.Email})
	}
	if filter.ReferenceNumber != "" {
		conds = append(conds, bson.M{"referenceNumber": filter.ReferenceNumber})
	}
	if filter.ProgramID != "" {
		conds = append(conds, bson.M{"programId": filter.ProgramID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make(bson.A, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conds = append(conds, bson.M{"status": bson.M{"$in": statuses}})
	}
	// applications with the applicant's name, email or the reference number matching the search keyword
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"applicant.fullName": re},
			bson.M{"applicant.email": re},
			bson.M{"referenceNumber": re},
		}})
	}

	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0].(bson.M)
	}
	return bson.M{"$and": conds}
}

func sortDoc(ordering []core.DBOrdering) bson.D {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: application.OrderApplicationDate}}
	}
	sort := make(bson.D, 0, len(ordering)+1)
	for _, ord := range ordering {
		key, ok := orderingFields[ord.Field]
		if !ok {
			continue
		}
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: key, Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

func (repo *applicationRepository) QueryApplications(
	ctx context.Context,
	filter application.QueryFilter,
	ordering []core.DBOrdering,
) ([]application.Application, error) {
	cur, err := repo.coll.Find(ctx, queryDoc(filter), options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	apps := make([]application.Application, 0)
	if err = cur.All(ctx, &apps); err != nil {
		return nil, errors.Wrap(err, "decoding applications")
	}
	return apps, nil
}

// setDoc lists the fields of `upd` to write.
func setDoc(upd application.Update) bson.M {
	set := make(bson.M)
	if upd.StudentID != nil {
		set["studentId"] = *upd.StudentID
	}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	if upd.RecommendedProgramID != nil {
		set["recommendedProgramId"] = *upd.RecommendedProgramID
	}
	if upd.DenialReason != nil {
		set["denialReason"] = *upd.DenialReason
	}
	if upd.ReviewedBy != nil {
		set["reviewedBy"] = *upd.ReviewedBy
	}
	if upd.ReviewedAt != nil {
		set["reviewedAt"] = upd.ReviewedAt.UTC()
	}
	if upd.Payment != nil {
		set["payment"] = application.Payment{Option: upd.Payment.Option, ConfirmedAt: upd.Payment.ConfirmedAt.UTC()}
	}
	return set
}

func (repo *applicationRepository) UpdateApplication(ctx context.Context, id string, upd application.Update) error {
	set := setDoc(upd)
	if len(set) == 0 {
		return nil
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "updating application")
	}
	if res.MatchedCount == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (repo *applicationRepository) TransitionApplication(
	ctx context.Context,
	id string,
	from application.Status,
	upd application.Update,
) error {
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)}, bson.M{"$set": setDoc(upd)})
	if err != nil {
		return errors.Wrap(err, "updating application status")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	cnt, err := repo.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "checking application")
	}
	if cnt == 0 {
		return application.ErrNotFound
	}
	return application.ErrStatusChanged
}

// paymentFilter matches an Approved application without a payment.
func paymentFilter(id string) bson.M {
	return bson.M{"_id": id, "status": string(application.StatusApproved), "payment": nil}
}

func (repo *applicationRepository) RecordPayment(ctx context.Context, id string, p application.Payment) error {
	res, err := repo.coll.UpdateOne(ctx, paymentFilter(id), bson.M{"$set": setDoc(application.Update{Payment: &p})})
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	cnt, err := repo.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "checking application")
	}
	if cnt == 0 {
		return application.ErrNotFound
	}
	return application.ErrStatusChanged
}

func (repo *applicationRepository) DeleteApplication(ctx context.Context, id string) error {
	if _, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return nil
}
