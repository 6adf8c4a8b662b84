package main

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"learnhub/config"
	"learnhub/database"
	"learnhub/models"
	courseModels "learnhub/models/course"
	courseService "learnhub/services/course"
	enrollmentService "learnhub/services/enrollment"
	"learnhub/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Imports courses and their lessons from a CSV with the headers
// instructor_id,course_title,description,price,lesson_title,lesson_position,lesson_content,published.
// Rows sharing instructor and course title land in one course. Existing
// courses and lessons are matched by title and updated in place.
func main() {
	cfg := config.LoadConfig()
	log, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.ConnectDb(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to the database", "error", err)
	}
	defer database.Close(db)

	path := "catalog.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	file, err := os.Open(path)
	if err != nil {
		log.Fatal("Failed to open CSV file", "path", path, "error", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		log.Fatal("Failed to read CSV", "error", err)
	}
	if len(records) < 2 {
		log.Fatal("CSV file is empty or has only headers")
	}

	log.Info("Importing catalog", "rows", len(records)-1)

	var cache utils.Cache = utils.NoopCache{}
	if cfg.CacheDriver == "redis" {
		cache = utils.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	}
	catalog := newCatalog(db, cache, utils.NewLocalBlobStore(cfg.StorageDir, cfg.StoragePublicBaseURL), cfg.CacheTTL, log)
	inserted, updated, skipped := importRows(context.Background(), db, catalog, records, log)
	log.Info("Import complete", "inserted", inserted, "updated", updated, "skipped", skipped)
}

// newCatalog builds the catalog with the enrollment hooks attached, so lesson
// publish changes reach existing enrollments and cached stats.
func newCatalog(db *gorm.DB, cache utils.Cache, blobs utils.BlobStore, statsTTL time.Duration, log *utils.Logger) *courseService.Catalog {
	catalog := courseService.NewCatalog(db, blobs, log)
	enrollmentService.NewEngine(db, cache, statsTTL, log).WatchCatalog(catalog)
	return catalog
}

// importRows upserts one lesson per CSV row. records[0] is the header.
func importRows(ctx context.Context, db *gorm.DB, catalog *courseService.Catalog, records [][]string, log *utils.Logger) (inserted, updated, skipped int) {
	headerIndex := make(map[string]int)
	for i, h := range records[0] {
		headerIndex[strings.TrimSpace(h)] = i
	}

	for i, row := range records[1:] {
		instructorID, err := uuid.Parse(getField(row, headerIndex, "instructor_id"))
		courseTitle := getField(row, headerIndex, "course_title")
		lessonTitle := getField(row, headerIndex, "lesson_title")
		if err != nil || courseTitle == "" || lessonTitle == "" {
			skipped++
			continue
		}
		owner := models.Identity{UserID: instructorID, Role: models.RoleInstructor}

		course, err := findOrCreateCourse(ctx, db, catalog, owner, courseService.CourseInput{
			Title:       courseTitle,
			Description: getField(row, headerIndex, "description"),
			Price:       parseFloat(getField(row, headerIndex, "price")),
		})
		if err != nil {
			log.Warn("Course import failed", "row", i+2, "title", courseTitle, "error", err)
			skipped++
			continue
		}

		published := getField(row, headerIndex, "published") == "true"
		content := getField(row, headerIndex, "lesson_content")
		position := parseInt(getField(row, headerIndex, "lesson_position"))

		var existing courseModels.Lesson
		lookup := db.WithContext(ctx).Where("course_id = ? AND title = ?", course.ID, lessonTitle).First(&existing)
		if lookup.Error != nil && !errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
			log.Warn("Lesson lookup failed", "row", i+2, "title", lessonTitle, "error", lookup.Error)
			skipped++
			continue
		}
		if lookup.Error != nil {
			_, err = catalog.CreateLesson(ctx, owner, course.ID, courseService.LessonInput{
				Title:     lessonTitle,
				Content:   content,
				Position:  position,
				Published: published,
			})
			if err != nil {
				log.Warn("Lesson import failed", "row", i+2, "title", lessonTitle, "error", err)
				skipped++
				continue
			}
			inserted++
			continue
		}

		_, err = catalog.UpdateLesson(ctx, owner, course.ID, existing.ID, courseService.LessonUpdate{
			Content:   &content,
			Position:  &position,
			Published: &published,
		})
		if err != nil {
			log.Warn("Lesson update failed", "row", i+2, "title", lessonTitle, "error", err)
			skipped++
			continue
		}
		updated++
	}
	return inserted, updated, skipped
}

func findOrCreateCourse(ctx context.Context, db *gorm.DB, catalog *courseService.Catalog, owner models.Identity, in courseService.CourseInput) (*courseModels.Course, error) {
	var course courseModels.Course
	err := db.WithContext(ctx).Where("instructor_id = ? AND title = ?", owner.UserID, in.Title).First(&course).Error
	if err == nil {
		return &course, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return catalog.CreateCourse(ctx, owner, in)
}

// getField safely gets a field from the row by header name
func getField(row []string, headerIndex map[string]int, field string) string {
	if idx, ok := headerIndex[field]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func parseInt(s string) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return val
}

func parseFloat(s string) float64 {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}
