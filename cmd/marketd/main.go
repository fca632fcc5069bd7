package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mintdrop/marketplace-engine/internal/config"
	"github.com/mintdrop/marketplace-engine/internal/config/di"
	"github.com/mintdrop/marketplace-engine/internal/event"
	"go.uber.org/zap"
)

var container *di.Container

func main() {
	config.Init("marketd")

	var err error
	container, err = di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	go health()

	if len(config.Get().ElasticSearch.Hosts) != 0 {
		container.GetElastic().InstallMappings()

		recorder := container.GetRecorder()
		event.AddEventListener(event.ItemListedEvent, recorder.OnItemListed)
		event.AddEventListener(event.ItemBoughtEvent, recorder.OnItemBought)
		event.AddEventListener(event.ItemCancelledEvent, recorder.OnItemCancelled)
	}

	if config.Get().Amqp.Enabled {
		messenger := container.GetMessenger()
		event.AddEventListener(event.ItemListedEvent, messenger.OnItemListed)
		event.AddEventListener(event.ItemBoughtEvent, messenger.OnItemBought)
		event.AddEventListener(event.ItemCancelledEvent, messenger.OnItemCancelled)
	}

	zap.L().With(zap.String("port", config.Get().ApiPort)).Info("Marketplace engine started")

	if err := http.ListenAndServe(":"+config.Get().ApiPort, container.GetServer().Router()); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start engine api")
	}
}

func health() {
	if err := http.ListenAndServe(":"+config.Get().HealthPort, healthRouter()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health endpoint")
	}
}

func healthRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	return r
}
