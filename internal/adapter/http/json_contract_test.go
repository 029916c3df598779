package httpadapter

import (
	"encoding/json"
	"testing"
	"time"

	"harvesthorizon/internal/app/action"
	"harvesthorizon/internal/app/mapview"
	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/app/replay"
	"harvesthorizon/internal/app/status"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"
)

func TestResponseJSONUsesSnakeCase(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	balance := int64(42)
	tile := farm.Tile{X: 1, Y: 2, ObstructionLevel: 4, IsBaseTile: true, Crop: &farm.Crop{Type: farm.CropCorn, Level: 2, PlantedAt: now}}
	delta := protocol.NewTileDelta("m1", farm.Coord{X: 1, Y: 2}, farm.TilePatch{CropRemoved: true})
	outcome := ports.Outcome{
		ID: "o-1", MapID: "m1", OwnerID: "o1", Kind: farm.ActionHarvest,
		Requested: 1, Eligible: 1, Applied: 1,
		Steps:  ports.OutcomeSteps{Debit: ports.StepSkipped, Inventory: ports.StepOK, Grid: ports.StepOK},
		Result: string(farm.ResultOK), At: now,
	}

	cases := []struct {
		name    string
		payload any
		want    []string
		notWant []string
	}{
		{
			name:    "map_sync",
			payload: mapview.Response{Map: farm.Map{ID: "m1", Tiles: []farm.Tile{tile}}, Balance: 7, ServerTime: now}.Sync(),
			want:    []string{"map_id", "tiles", "balance", "server_time_ms"},
			notWant: []string{"MapID", "Tiles", "ServerTime"},
		},
		{
			name:    "action",
			payload: action.Response{ActionKind: farm.ActionHarvest, ResultCode: farm.ResultOK, AppliedDeltas: []protocol.TileDelta{delta}, NewBalance: &balance},
			want:    []string{"action_kind", "result_code", "applied_count", "applied_deltas", "new_balance", "total_cost"},
			notWant: []string{"ResultCode", "AppliedDeltas", "NewBalance"},
		},
		{
			name:    "status",
			payload: status.Response{OwnerID: "o1", Balance: 7, Inventory: map[string]int{"wheat_seed": 2}},
			want:    []string{"owner_id", "balance", "inventory"},
			notWant: []string{"OwnerID", "Inventory"},
		},
		{
			name:    "replay",
			payload: replay.Response{Outcomes: []ports.Outcome{outcome}},
			want:    []string{"outcomes", "summary"},
			notWant: []string{"Outcomes", "Summary"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.payload)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			for _, key := range tc.want {
				if _, ok := got[key]; !ok {
					t.Fatalf("expected key %q in %s", key, string(b))
				}
			}
			for _, key := range tc.notWant {
				if _, ok := got[key]; ok {
					t.Fatalf("unexpected key %q in %s", key, string(b))
				}
			}
			switch tc.name {
			case "map_sync":
				tiles, _ := got["tiles"].([]any)
				tileMap := asMap(tiles[0])
				if _, ok := tileMap["obstruction_level"]; !ok {
					t.Fatalf("expected nested snake_case key tiles[0].obstruction_level in %s", string(b))
				}
				if _, ok := asMap(tileMap["crop"])["planted_at"]; !ok {
					t.Fatalf("expected nested key tiles[0].crop.planted_at in %s", string(b))
				}
			case "action":
				deltas, _ := got["applied_deltas"].([]any)
				fields := asMap(asMap(deltas[0])["fields"])
				if fields["crop_removed"] != true {
					t.Fatalf("expected applied_deltas[0].fields.crop_removed in %s", string(b))
				}
				if _, ok := fields["obstruction_level"]; ok {
					t.Fatalf("unset patch fields must be omitted in %s", string(b))
				}
			case "replay":
				outcomes, _ := got["outcomes"].([]any)
				steps := asMap(asMap(outcomes[0])["steps"])
				if steps["inventory"] != "ok" {
					t.Fatalf("expected outcomes[0].steps.inventory in %s", string(b))
				}
			}
		})
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
