package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/database"
	"github.com/citc/clubhub/internal/ports"
)

// NewMongoRepositories wires every repository over one MongoDB database.
func NewMongoRepositories(m *database.Mongo) ports.Repositories {
	return ports.Repositories{
		Users:    &MongoUserRepository{c: m.DB.Collection(database.UsersCollection)},
		Events:   &MongoEventRepository{c: m.DB.Collection(database.EventsCollection)},
		Teams:    &MongoTeamRepository{teams: m.DB.Collection(database.TeamsCollection), members: m.DB.Collection(database.MembersCollection)},
		Projects: &MongoProjectRepository{c: m.DB.Collection(database.ProjectsCollection)},
	}
}

// MongoUserRepository stores users in the users collection
type MongoUserRepository struct {
	c *mongo.Collection
}

func (r *MongoUserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.c.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entities.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*entities.User, error) {
	if googleID == "" {
		return nil, entities.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"google_id": googleID})
}

func (r *MongoUserRepository) Update(ctx context.Context, user *entities.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.c.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entities.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]*entities.User, error) {
	cur, err := r.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []*entities.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*entities.User, error) {
	var u entities.User
	if err := r.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// eventDocument is an event with its partition year stored as a field.
type eventDocument struct {
	entities.Event `bson:",inline"`
	PartYear       int `bson:"year"`
}

// MongoEventRepository stores events in a single collection partitioned by
// the year field.
type MongoEventRepository struct {
	c *mongo.Collection
}

func (r *MongoEventRepository) ListYear(ctx context.Context, year int) ([]*entities.Event, error) {
	return r.find(ctx, bson.M{"year": year}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *MongoEventRepository) List(ctx context.Context) ([]*entities.Event, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "year", Value: 1}, {Key: "created_at", Value: 1}}))
}

func (r *MongoEventRepository) Years(ctx context.Context) ([]int, error) {
	raw, err := r.c.Distinct(ctx, "year", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list event years: %w", err)
	}

	years := make([]int, 0, len(raw))
	for _, v := range raw {
		switch y := v.(type) {
		case int32:
			years = append(years, int(y))
		case int64:
			years = append(years, int(y))
		}
	}
	sort.Ints(years)
	return years, nil
}

func (r *MongoEventRepository) GetByID(ctx context.Context, id string) (*entities.Event, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoEventRepository) GetBySlug(ctx context.Context, slug string) (*entities.Event, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *MongoEventRepository) Create(ctx context.Context, event *entities.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	event.Attendees = []string{}
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Normalize()

	if _, err := r.c.InsertOne(ctx, eventDocument{Event: *event, PartYear: event.Year()}); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update sets the editable fields and the year field in one write, so a
// change of start year moves the event atomically. Attendees and creation
// fields are left to the stored document and copied back onto event.
func (r *MongoEventRepository) Update(ctx context.Context, event *entities.Event) error {
	event.UpdatedAt = time.Now().UTC()
	event.Normalize()

	set := bson.M{
		"title":       event.Title,
		"slug":        event.Slug,
		"description": event.Description,
		"type":        event.Type,
		"start_at":    event.StartAt,
		"end_at":      event.EndAt,
		"location":    event.Location,
		"capacity":    event.Capacity,
		"image":       event.Image,
		"cover_image": event.CoverImage,
		"gallery":     event.Gallery,
		"tags":        event.Tags,
		"organizer":   event.Organizer,
		"attachments": event.Attachments,
		"updated_at":  event.UpdatedAt,
		"year":        event.Year(),
	}

	var doc eventDocument
	err := r.c.FindOneAndUpdate(ctx, bson.M{"_id": event.ID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entities.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	event.Attendees = doc.Attendees
	event.CreatedBy = doc.CreatedBy
	event.CreatedAt = doc.CreatedAt
	event.Normalize()
	return nil
}

func (r *MongoEventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return entities.ErrEventNotFound
	}
	return nil
}

// RSVP adds the user only when absent. The filter makes the check and the
// push a single atomic operation.
func (r *MongoEventRepository) RSVP(ctx context.Context, eventID, userID string) (*entities.Event, error) {
	filter := bson.M{"_id": eventID, "attendees": bson.M{"$ne": userID}}
	update := bson.M{
		"$push": bson.M{"attendees": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	var doc eventDocument
	err := r.c.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		return &doc.Event, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("rsvp event: %w", err)
	}

	// Either the event does not exist or the user is already listed.
	if _, getErr := r.GetByID(ctx, eventID); getErr != nil {
		return nil, getErr
	}
	return nil, entities.ErrAlreadyRSVPed
}

func (r *MongoEventRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entities.Event, error) {
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]*entities.Event, len(docs))
	for i := range docs {
		ev := docs[i].Event
		ev.Normalize()
		events[i] = &ev
	}
	return events, nil
}

func (r *MongoEventRepository) findOne(ctx context.Context, filter bson.M) (*entities.Event, error) {
	var doc eventDocument
	if err := r.c.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	doc.Event.Normalize()
	return &doc.Event, nil
}

// MongoTeamRepository keeps teams and members in two collections
type MongoTeamRepository struct {
	teams   *mongo.Collection
	members *mongo.Collection
}

func (r *MongoTeamRepository) ListTeams(ctx context.Context) ([]*entities.Team, error) {
	cur, err := r.teams.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams := []*entities.Team{}
	if err := cur.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (r *MongoTeamRepository) GetTeam(ctx context.Context, id string) (*entities.Team, error) {
	var t entities.Team
	if err := r.teams.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return &t, nil
}

func (r *MongoTeamRepository) CreateTeam(ctx context.Context, team *entities.Team) error {
	if team.ID == "" {
		team.ID = uuid.New().String()
	}
	if _, err := r.teams.InsertOne(ctx, team); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: team %s exists", entities.ErrConflict, team.ID)
		}
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

func (r *MongoTeamRepository) CountTeams(ctx context.Context) (int64, error) {
	n, err := r.teams.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count teams: %w", err)
	}
	return n, nil
}

func (r *MongoTeamRepository) ListMembers(ctx context.Context) ([]*entities.Member, error) {
	cur, err := r.members.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	members := []*entities.Member{}
	if err := cur.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (r *MongoTeamRepository) GetMember(ctx context.Context, id string) (*entities.Member, error) {
	var m entities.Member
	if err := r.members.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (r *MongoTeamRepository) CreateMember(ctx context.Context, member *entities.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	if _, err := r.members.InsertOne(ctx, member); err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (r *MongoTeamRepository) UpdateMember(ctx context.Context, member *entities.Member) error {
	member.UpdatedAt = time.Now().UTC()

	res, err := r.members.ReplaceOne(ctx, bson.M{"_id": member.ID}, member)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if res.MatchedCount == 0 {
		return entities.ErrMemberNotFound
	}
	return nil
}

func (r *MongoTeamRepository) DeleteMember(ctx context.Context, id string) error {
	res, err := r.members.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if res.DeletedCount == 0 {
		return entities.ErrMemberNotFound
	}
	return nil
}

func (r *MongoTeamRepository) Replace(ctx context.Context, teams []entities.Team, members []entities.Member) error {
	if _, err := r.teams.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("replace team directory: %w", err)
	}
	if _, err := r.members.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("replace team directory: %w", err)
	}

	if len(teams) > 0 {
		docs := make([]interface{}, len(teams))
		for i := range teams {
			docs[i] = teams[i]
		}
		if _, err := r.teams.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("replace team directory: %w", err)
		}
	}
	if len(members) > 0 {
		docs := make([]interface{}, len(members))
		for i := range members {
			docs[i] = members[i]
		}
		if _, err := r.members.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("replace team directory: %w", err)
		}
	}
	return nil
}

// MongoProjectRepository stores projects in the projects collection
type MongoProjectRepository struct {
	c *mongo.Collection
}

func (r *MongoProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	if _, err := r.c.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *MongoProjectRepository) GetByID(ctx context.Context, id string) (*entities.Project, error) {
	var p entities.Project
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *MongoProjectRepository) List(ctx context.Context) ([]*entities.Project, error) {
	cur, err := r.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := []*entities.Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}
