package main

import (
	"context"
	"flag"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/moastrends/newsroom/app"
	"github.com/moastrends/newsroom/app_setting"
	"github.com/moastrends/newsroom/auth"
	"github.com/moastrends/newsroom/heartbeat"
	"github.com/moastrends/newsroom/media"
	"github.com/moastrends/newsroom/server"
	"github.com/moastrends/newsroom/server/middlewares"
	"github.com/moastrends/newsroom/store"
	"github.com/moastrends/newsroom/utils"
	"github.com/moastrends/newsroom/utils/dotenv"

	. "github.com/moastrends/newsroom/utils/flag"
	. "github.com/moastrends/newsroom/utils/log"
)

var appSettingPath = flag.String("app_setting", "", "path to the server app setting yaml, defaults apply when empty")

func newTokenStore(ctx context.Context) auth.TokenStore {
	if IsDevelopment {
		Log.Info("using in-memory session tokens")
		return auth.NewMemoryTokenStore()
	}
	tokens, err := auth.NewRedisTokenStore(ctx)
	if err != nil {
		Log.Fatalf("fail to connect to redis: %v", err)
	}
	return tokens
}

func newMediaStore(setting app_setting.ServerAppSetting) media.Store {
	if setting.USE_S3_MEDIA_STORE {
		s3, err := media.NewS3Store()
		if err != nil {
			Log.Fatalf("fail to set up s3 media store: %v", err)
		}
		return s3
	}
	cloudinary, err := media.NewCloudinaryStore()
	if err != nil {
		Log.Fatalf("fail to set up cloudinary media store: %v", err)
	}
	return cloudinary
}

func main() {
	ParseFlags()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	setting, err := app_setting.ParseServerAppSetting(*appSettingPath)
	if err != nil {
		Log.Fatalf("fail to parse app setting: %v", err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		Log.Fatalf("fail to connect to database: %v", err)
	}
	if err := store.SetupAndMigrate(db); err != nil {
		Log.Fatalf("fail to migrate schema: %v", err)
	}
	rows := store.NewPostgresStore(db)

	ctx := context.Background()
	svc := auth.NewService(rows, newTokenStore(ctx))

	// Default with the Logger and Recovery middleware already attached.
	router := gin.Default()
	router.Use(cors.Default())
	if !ByPassAuth {
		router.Use(middlewares.Session(svc, rows))
	}
	server.NewHandler(rows, svc, newMediaStore(setting)).Register(router)

	engine := app.NewEngine([]app.Module{
		heartbeat.New(rows, time.Duration(setting.HEARTBEAT_INTERVAL_SECOND)*time.Second),
	})
	go engine.Run()
	defer engine.Shutdown()

	Log.Info("api server starts up")
	router.Run(setting.SERVER_ADDR)
}
