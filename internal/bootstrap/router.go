package bootstrap

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/config"
	httpapi "github.com/idem-lexis/lexis-api/internal/api/http"
	apimiddleware "github.com/idem-lexis/lexis-api/internal/api/http/middleware"
	archetypedomain "github.com/idem-lexis/lexis-api/internal/archetypes/domain"
	archetypehttp "github.com/idem-lexis/lexis-api/internal/archetypes/http"
	archetypeservice "github.com/idem-lexis/lexis-api/internal/archetypes/service"
	authdomain "github.com/idem-lexis/lexis-api/internal/auth/domain"
	authhttp "github.com/idem-lexis/lexis-api/internal/auth/http"
	authmiddleware "github.com/idem-lexis/lexis-api/internal/auth/middleware"
	authservice "github.com/idem-lexis/lexis-api/internal/auth/service"
	brandingdomain "github.com/idem-lexis/lexis-api/internal/branding/domain"
	brandinghttp "github.com/idem-lexis/lexis-api/internal/branding/http"
	brandingservice "github.com/idem-lexis/lexis-api/internal/branding/service"
	bpdomain "github.com/idem-lexis/lexis-api/internal/businessplan/domain"
	bphttp "github.com/idem-lexis/lexis-api/internal/businessplan/http"
	bpservice "github.com/idem-lexis/lexis-api/internal/businessplan/service"
	deploydomain "github.com/idem-lexis/lexis-api/internal/deployments/domain"
	deployhttp "github.com/idem-lexis/lexis-api/internal/deployments/http"
	deployservice "github.com/idem-lexis/lexis-api/internal/deployments/service"
	diagramdomain "github.com/idem-lexis/lexis-api/internal/diagrams/domain"
	diagramhttp "github.com/idem-lexis/lexis-api/internal/diagrams/http"
	diagramservice "github.com/idem-lexis/lexis-api/internal/diagrams/service"
	"github.com/idem-lexis/lexis-api/internal/github"
	landingdomain "github.com/idem-lexis/lexis-api/internal/landings/domain"
	landinghttp "github.com/idem-lexis/lexis-api/internal/landings/http"
	landingservice "github.com/idem-lexis/lexis-api/internal/landings/service"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/metrics"
	projectdomain "github.com/idem-lexis/lexis-api/internal/projects/domain"
	projecthttp "github.com/idem-lexis/lexis-api/internal/projects/http"
	projectservice "github.com/idem-lexis/lexis-api/internal/projects/service"
	"github.com/idem-lexis/lexis-api/internal/quota"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const serviceName = "lexis-api"

// RouterDeps carries what BuildRouter wires together. Verifier is required
// unless AuthMode is "dev". Redis, GitHub and Pricer are optional.
type RouterDeps struct {
	Config   *config.Config
	Storage  storage.Backend
	Verifier authmiddleware.TokenVerifier
	LLM      *llm.Client
	Redis    *redis.Client
	GitHub   github.Pusher
	Pricer   deployservice.Pricer
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config
	r := gin.New()
	r.Use(gin.Recovery(), apimiddleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", apimiddleware.RequestIDHeader, authmiddleware.DevUserHeader},
		ExposeHeaders:    []string{apimiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	var quotaStore *quota.Store
	var redisPinger httpapi.Pinger
	if dep.Redis != nil {
		quotaStore = quota.NewStore(dep.Redis, cfg.Quota.DailyLimit, cfg.Quota.WeeklyLimit)
		redisPinger = quotaStore
	}

	httpapi.NewHealthHandler(serviceName, cfg.App.Version, dep.Storage, redisPinger).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// repositories
	users := storage.NewRepository[authdomain.User](dep.Storage, storage.ModelUsers)
	projectRepo := storage.NewRepository[projectdomain.Project](dep.Storage, storage.ModelProjects)
	brandingRepo := storage.NewRepository[brandingdomain.Branding](dep.Storage, storage.ModelBrandings)
	bpRepo := storage.NewRepository[bpdomain.BusinessPlan](dep.Storage, storage.ModelBusinessPlans)
	diagramRepo := storage.NewRepository[diagramdomain.Diagram](dep.Storage, storage.ModelDiagrams)
	landingRepo := storage.NewRepository[landingdomain.Landing](dep.Storage, storage.ModelLandings)
	archetypeRepo := storage.NewRepository[archetypedomain.Archetype](dep.Storage, storage.ModelArchetypes)
	deployRepo := storage.NewRepository[deploydomain.Deployment](dep.Storage, storage.ModelDeployments)

	// services
	authSvc := authservice.NewAuthService(users)
	projects := projectservice.NewProjectService(projectRepo)
	archetypes := archetypeservice.NewArchetypeService(archetypeRepo)
	brandings := brandingservice.NewBrandingService(brandingRepo, projects, dep.LLM)
	plans := bpservice.NewBusinessPlanService(bpRepo, projects, dep.LLM)
	diagrams := diagramservice.NewDiagramService(diagramRepo, projects, dep.LLM)
	landings := landingservice.NewLandingService(landingRepo, projects, brandingRepo, dep.LLM)
	projects.OnDelete(
		func(ctx context.Context, id string) error { return storage.DeleteIfExists[brandingdomain.Branding](ctx, brandingRepo, id) },
		func(ctx context.Context, id string) error { return storage.DeleteIfExists[bpdomain.BusinessPlan](ctx, bpRepo, id) },
		func(ctx context.Context, id string) error { return storage.DeleteIfExists[diagramdomain.Diagram](ctx, diagramRepo, id) },
		func(ctx context.Context, id string) error { return storage.DeleteIfExists[landingdomain.Landing](ctx, landingRepo, id) },
		func(ctx context.Context, id string) error {
			_, err := storage.DeleteWhere[deploydomain.Deployment](ctx, deployRepo, storage.Filter{"projectId": id})
			return err
		},
	)
	deployments := deployservice.NewDeploymentService(deployRepo, projects, archetypes, dep.LLM, dep.GitHub, dep.Pricer)

	// handlers
	authH := authhttp.New(authSvc)
	brandingH := brandinghttp.New(brandings)
	bpH := bphttp.New(plans)
	diagramH := diagramhttp.New(diagrams)
	landingH := landinghttp.New(landings)
	deployH := deployhttp.New(deployments)

	api := r.Group("/api/v1")
	if cfg.App.AuthMode == "dev" {
		logging.Base().Warn("dev auth enabled, trusting the user header", zap.String("header", authmiddleware.DevUserHeader))
		api.Use(authmiddleware.DevAuthMiddleware())
	} else {
		api.Use(authmiddleware.FirebaseAuthMiddleware(dep.Verifier))
	}

	authH.Register(api.Group("/auth"))
	usersGroup := api.Group("/users")
	authH.RegisterUsers(usersGroup)
	quota.NewHandler(quotaStore).Register(usersGroup)

	projecthttp.New(projects).Register(api.Group("/projects"))
	archetypehttp.New(archetypes).Register(api.Group("/archetypes"))

	brandingG := api.Group("/brandings")
	bpG := api.Group("/businessplans")
	diagramG := api.Group("/diagrams")
	landingG := api.Group("/landings")
	deployG := api.Group("/deployments")
	githubG := api.Group("/github")

	brandingH.Register(brandingG)
	bpH.Register(bpG)
	diagramH.Register(diagramG)
	landingH.Register(landingG)
	deployH.Register(deployG)
	github.NewHandler(dep.GitHub, projects).Register(githubG)

	// generation routes are gated by policy acceptance and the quota
	gate := []gin.HandlerFunc{authmiddleware.RequirePolicies(authSvc)}
	if quotaStore != nil {
		gate = append(gate, quota.Middleware(quotaStore))
	}
	brandingH.RegisterGenerate(brandingG.Group("", gate...))
	bpH.RegisterGenerate(bpG.Group("", gate...))
	diagramH.RegisterGenerate(diagramG.Group("", gate...))
	landingH.RegisterGenerate(landingG.Group("", gate...))
	deployH.RegisterGenerate(deployG.Group("", gate...))

	return r
}

// SeedArchetypes loads the seed file at path and inserts the archetypes
// that are not stored yet. An empty path is a no-op.
func SeedArchetypes(ctx context.Context, backend storage.Backend, path string) error {
	if path == "" {
		return nil
	}
	items, err := archetypeservice.LoadSeedFile(path)
	if err != nil {
		return err
	}
	svc := archetypeservice.NewArchetypeService(storage.NewRepository[archetypedomain.Archetype](backend, storage.ModelArchetypes))
	n, err := svc.Seed(ctx, items)
	if err != nil {
		return err
	}
	logging.Base().Info("archetypes seeded", zap.Int("inserted", n), zap.Int("in_file", len(items)))
	return nil
}
