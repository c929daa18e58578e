package allocation

import (
	"fmt"
	"log"
	"net/http"

	"SigmaCollect/internal/serviceiface"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AllocationService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
	store  ArtifactStore
}

func NewAllocationService(cfg map[string]interface{}, pool *pgxpool.Pool, store ArtifactStore) serviceiface.Service {
	return &AllocationService{config: cfg, pool: pool, store: store}
}

func (s *AllocationService) Name() string {
	return "allocation"
}

func (s *AllocationService) Start() error {
	port := 7143
	if s.config != nil {
		if p, ok := s.config["port"].(int); ok && p > 0 {
			port = p
		}
	}
	go StartAllocationService(s.pool, s.store, port)
	return nil
}

func (s *AllocationService) Stop() error {
	return nil
}

func StartAllocationService(pool *pgxpool.Pool, store ArtifactStore, port int) {
	router := mux.NewRouter()

	router.HandleFunc("/allocation/upload", UploadAllocationFile(pool, store)).Methods("POST")
	router.HandleFunc("/allocation/reupload", ReuploadAllocationFile(pool, store)).Methods("POST")
	router.HandleFunc("/allocation/files", GetAllocationFiles(pool)).Methods("POST")
	router.HandleFunc("/allocation/headers", GetAllocationFileHeaders(pool)).Methods("POST")

	addr := fmt.Sprintf(":%d", port)
	log.Println("Allocation Service started on", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Allocation Service failed: %v", err)
	}
}
