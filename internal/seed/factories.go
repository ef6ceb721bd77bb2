package seed

import (
	"fmt"
	"strings"
	"time"

	"fittedin/internal/models"
	"fittedin/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	fitnessLevels = []string{
		string(models.FitnessLevelBeginner),
		string(models.FitnessLevelIntermediate),
		string(models.FitnessLevelAdvanced),
	}
	goalCategories = []string{
		string(models.GoalCategoryWeightLoss), string(models.GoalCategoryMuscleGain),
		string(models.GoalCategoryCardio), string(models.GoalCategoryFlexibility),
		string(models.GoalCategoryNutrition), string(models.GoalCategoryMentalHealth),
		string(models.GoalCategorySleep), string(models.GoalCategoryHydration),
	}
	goalUnits = map[string]string{
		string(models.GoalCategoryWeightLoss):   "kg",
		string(models.GoalCategoryMuscleGain):   "kg",
		string(models.GoalCategoryCardio):       "km",
		string(models.GoalCategoryFlexibility):  "sessions",
		string(models.GoalCategoryNutrition):    "meals",
		string(models.GoalCategoryMentalHealth): "days",
		string(models.GoalCategorySleep):        "hours",
		string(models.GoalCategoryHydration):    "liters",
	}
	goalTitles = map[string][]string{
		string(models.GoalCategoryWeightLoss):   {"Drop 5kg before summer", "Lose the holiday weight"},
		string(models.GoalCategoryMuscleGain):   {"Add 10kg to my squat", "Put on lean mass"},
		string(models.GoalCategoryCardio):       {"Run a half marathon", "Ride 100km this month"},
		string(models.GoalCategoryFlexibility):  {"Touch my toes", "Daily mobility routine"},
		string(models.GoalCategoryNutrition):    {"Cook at home more", "Hit my protein target"},
		string(models.GoalCategoryMentalHealth): {"Meditate every morning", "Journal before bed"},
		string(models.GoalCategorySleep):        {"Sleep 8 hours a night", "No screens after 10pm"},
		string(models.GoalCategoryHydration):    {"Drink 3 liters a day", "Swap soda for water"},
	}
	skills = []string{
		"running", "yoga", "weightlifting", "swimming", "cycling", "meal prep",
		"meditation", "climbing", "boxing", "pilates", "hiking", "rowing",
	}
	postOpeners = []string{
		"Just finished", "Crushed", "Struggled through", "Loved", "Tried",
	}
	workouts = []string{
		"a 10k tempo run", "leg day", "a sunrise yoga flow", "an hour in the pool",
		"a hill ride", "a deload week", "my first bouldering session", "a HIIT circuit",
	}
)

// Factory builds demo entities with gofakeit and persists them.
type Factory struct {
	db     *gorm.DB
	faker  *gofakeit.Faker
	opts   Options
	hashed string
	serial int
}

// NewFactory creates a Factory. The shared demo password is hashed once.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	opts = opts.withDefaults()
	hashed, err := service.HashPassword(opts.Password, opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &Factory{
		db:     db,
		faker:  gofakeit.New(opts.RandomSeed),
		opts:   opts,
		hashed: hashed,
	}, nil
}

// pastTime returns a random instant within the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// BuildUser returns an unsaved seeded user on the configured domain.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.serial++
	first, last := f.faker.FirstName(), f.faker.LastName()
	local := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, f.serial))
	local = strings.NewReplacer(" ", "", "'", "").Replace(local)

	user := &models.User{
		Email:       local + "@" + f.opts.Domain,
		DisplayName: first + " " + last,
		Password:    f.hashed,
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		IsSeeded:    true,
		CreatedAt:   f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a BuildUser result.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateProfile persists a random profile for user.
func (f *Factory) CreateProfile(user *models.User, overrides ...func(*models.Profile)) (*models.Profile, error) {
	picked := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		picked = append(picked, f.faker.RandomString(skills))
	}
	profile := &models.Profile{
		UserID:       user.ID,
		Bio:          f.faker.Sentence(12),
		Location:     fmt.Sprintf("%s, %s", f.faker.City(), f.faker.StateAbr()),
		FitnessLevel: models.FitnessLevel(f.faker.RandomString(fitnessLevels)),
		PrimaryGoals: strings.Join([]string{f.faker.RandomString(goalCategories), f.faker.RandomString(goalCategories)}, ", "),
		Skills:       strings.Join(picked, ", "),
	}
	for _, override := range overrides {
		override(profile)
	}
	if err := f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pronouns", "bio", "location", "fitness_level", "primary_goals", "skills"}),
	}).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateGoal persists a random goal for user.
func (f *Factory) CreateGoal(user *models.User, overrides ...func(*models.Goal)) (*models.Goal, error) {
	category := f.faker.RandomString(goalCategories)
	target := float64(f.faker.Number(5, 200))
	start := f.pastTime()
	due := start.Add(time.Duration(f.faker.Number(30, 180)) * 24 * time.Hour)

	goal := &models.Goal{
		UserID:       user.ID,
		Title:        f.faker.RandomString(goalTitles[category]),
		Description:  f.faker.Sentence(10),
		Category:     models.GoalCategory(category),
		TargetValue:  &target,
		CurrentValue: float64(f.faker.Number(0, int(target))),
		Unit:         goalUnits[category],
		StartDate:    start,
		TargetDate:   &due,
		Status:       models.GoalStatusActive,
		Priority:     models.GoalPriority(f.faker.RandomString([]string{"low", "medium", "high"})),
		IsPublic:     true,
	}
	if goal.CurrentValue >= target {
		goal.Status = models.GoalStatusCompleted
	}
	for _, override := range overrides {
		override(goal)
	}
	if err := f.db.Create(goal).Error; err != nil {
		return nil, err
	}
	return goal, nil
}

// CreatePost persists a short workout update by user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		UserID: user.ID,
		Content: fmt.Sprintf("%s %s. %s",
			f.faker.RandomString(postOpeners), f.faker.RandomString(workouts), f.faker.Sentence(8)),
		CreatedAt: f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateConnection persists a row between a and b. It reports false when the
// pair already has a row.
func (f *Factory) CreateConnection(a, b *models.User, status models.ConnectionStatus) (bool, error) {
	conn := &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: status}
	res := f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(conn)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
