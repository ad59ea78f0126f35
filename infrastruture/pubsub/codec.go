package pubsub

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeStep serializes a tick as a protobuf Struct.
func EncodeStep(s sim.StepRecord) ([]byte, error) {
	agents := make([]any, 0, len(s.Agents))
	for _, a := range s.Agents {
		agents = append(agents, map[string]any{
			"agent_id":  a.AgentID,
			"algorithm": a.Algorithm,
			"row":       a.Pos.Row,
			"col":       a.Pos.Col,
			"moved":     a.Moved,
			"collided":  a.Collided,
			"status":    a.Status.String(),
			"points":    a.Points,
			"reason":    a.Reason,
		})
	}
	st, err := structpb.NewStruct(map[string]any{
		"episode_id": s.EpisodeID.String(),
		"tick":       s.Tick,
		"agents":     agents,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding tick %d: %w", s.Tick, err)
	}
	return proto.Marshal(st)
}

// DecodeStep is the inverse of EncodeStep.
func DecodeStep(data []byte) (sim.StepRecord, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return sim.StepRecord{}, err
	}
	f := st.GetFields()

	id, err := uuid.Parse(f["episode_id"].GetStringValue())
	if err != nil {
		return sim.StepRecord{}, fmt.Errorf("decoding episode id: %w", err)
	}
	s := sim.StepRecord{EpisodeID: id, Tick: int(f["tick"].GetNumberValue())}
	for _, v := range f["agents"].GetListValue().GetValues() {
		af := v.GetStructValue().GetFields()
		a := sim.AgentStep{
			AgentID:   int(af["agent_id"].GetNumberValue()),
			Algorithm: af["algorithm"].GetStringValue(),
			Pos: world.Pos{
				Row: int(af["row"].GetNumberValue()),
				Col: int(af["col"].GetNumberValue()),
			},
			Moved:    af["moved"].GetBoolValue(),
			Collided: af["collided"].GetBoolValue(),
			Points:   int(af["points"].GetNumberValue()),
			Reason:   af["reason"].GetStringValue(),
		}
		if err := a.Status.UnmarshalText([]byte(af["status"].GetStringValue())); err != nil {
			return sim.StepRecord{}, err
		}
		s.Agents = append(s.Agents, a)
	}
	return s, nil
}

// EncodeEpisode serializes the episode totals. Per-agent summaries stay in
// the episode store.
func EncodeEpisode(e sim.EpisodeRecord) ([]byte, error) {
	lengths := make([]any, 0, len(e.PathLengths))
	for _, l := range e.PathLengths {
		lengths = append(lengths, l)
	}
	st, err := structpb.NewStruct(map[string]any{
		"episode_id":   e.EpisodeID.String(),
		"seed":         strconv.FormatInt(e.Seed, 10),
		"algorithm":    e.Algorithm,
		"outcome":      e.Outcome.String(),
		"ticks":        e.Ticks,
		"expansions":   e.Expansions,
		"runtime_ns":   e.Runtime.Nanoseconds(),
		"collisions":   e.Collisions,
		"success":      e.Success,
		"path_lengths": lengths,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding episode %s: %w", e.EpisodeID, err)
	}
	return proto.Marshal(st)
}

// DecodeEpisode is the inverse of EncodeEpisode.
func DecodeEpisode(data []byte) (sim.EpisodeRecord, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return sim.EpisodeRecord{}, err
	}
	f := st.GetFields()

	id, err := uuid.Parse(f["episode_id"].GetStringValue())
	if err != nil {
		return sim.EpisodeRecord{}, fmt.Errorf("decoding episode id: %w", err)
	}
	seed, err := strconv.ParseInt(f["seed"].GetStringValue(), 10, 64)
	if err != nil {
		return sim.EpisodeRecord{}, fmt.Errorf("decoding seed: %w", err)
	}
	e := sim.EpisodeRecord{
		EpisodeID:  id,
		Seed:       seed,
		Algorithm:  f["algorithm"].GetStringValue(),
		Ticks:      int(f["ticks"].GetNumberValue()),
		Expansions: int(f["expansions"].GetNumberValue()),
		Runtime:    time.Duration(f["runtime_ns"].GetNumberValue()),
		Collisions: int(f["collisions"].GetNumberValue()),
		Success:    f["success"].GetBoolValue(),
	}
	if err := e.Outcome.UnmarshalText([]byte(f["outcome"].GetStringValue())); err != nil {
		return sim.EpisodeRecord{}, err
	}
	for _, v := range f["path_lengths"].GetListValue().GetValues() {
		e.PathLengths = append(e.PathLengths, int(v.GetNumberValue()))
	}
	return e, nil
}
