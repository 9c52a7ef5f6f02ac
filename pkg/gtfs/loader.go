package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	gogtfs "github.com/OneBusAway/go-gtfs"
)

// LoadZip parses a GTFS zip into a Feed.
func LoadZip(feedID, path string) (*Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gtfs %s: %w", path, err)
	}
	static, err := gogtfs.ParseStatic(data, gogtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("parse gtfs %s: %w", path, err)
	}

	feed, err := fromStatic(feedID, static)
	if err != nil {
		return nil, err
	}

	// go-gtfs keeps only stop to stop transfers, the route & trip columns are read here.
	transfers, err := readTransfers(path)
	if err != nil {
		return nil, err
	}
	for _, t := range transfers {
		feed.AddTransfer(t)
	}

	if err := feed.Finalize(); err != nil {
		return nil, err
	}
	return feed, nil
}

func fromStatic(feedID string, static *gogtfs.Static) (*Feed, error) {
	feed := NewFeed(feedID)

	for _, a := range static.Agencies {
		zone, err := time.LoadLocation(a.Timezone)
		if err != nil {
			return nil, fmt.Errorf("agency %s timezone %q: %w", a.Id, a.Timezone, ErrMalformedSchedule)
		}
		feed.AddAgency(Agency{ID: a.Id, Name: a.Name, Timezone: zone})
	}

	for _, r := range static.Routes {
		agencyID := ""
		if r.Agency != nil {
			agencyID = r.Agency.Id
		}
		feed.AddRoute(Route{
			ID:        r.Id,
			AgencyID:  agencyID,
			Type:      int(r.Type),
			ShortName: r.ShortName,
			LongName:  r.LongName,
		})
	}

	for _, s := range static.Stops {
		stop := Stop{
			ID:           s.Id,
			Name:         s.Name,
			LocationType: int(s.Type),
		}
		if s.Latitude != nil && s.Longitude != nil {
			stop.Lat = *s.Latitude
			stop.Lon = *s.Longitude
		}
		if s.Parent != nil {
			stop.ParentStation = s.Parent.Id
		}
		feed.AddStop(stop)
	}

	for _, s := range static.Services {
		svc := Service{
			ID:      s.Id,
			Start:   s.StartDate,
			End:     s.EndDate,
			Added:   make(map[string]struct{}),
			Removed: make(map[string]struct{}),
		}
		svc.Weekdays[time.Monday] = s.Monday
		svc.Weekdays[time.Tuesday] = s.Tuesday
		svc.Weekdays[time.Wednesday] = s.Wednesday
		svc.Weekdays[time.Thursday] = s.Thursday
		svc.Weekdays[time.Friday] = s.Friday
		svc.Weekdays[time.Saturday] = s.Saturday
		svc.Weekdays[time.Sunday] = s.Sunday
		for _, d := range s.AddedDates {
			svc.Added[d.Format(dateKey)] = struct{}{}
		}
		for _, d := range s.RemovedDates {
			svc.Removed[d.Format(dateKey)] = struct{}{}
		}
		feed.AddService(svc)
	}

	for i := range static.Trips {
		t := &static.Trips[i]
		trip := Trip{
			ID:       t.ID,
			BlockID:  t.BlockID,
			Headsign: t.Headsign,
		}
		if t.Route != nil {
			trip.RouteID = t.Route.Id
		}
		if t.Service != nil {
			trip.ServiceID = t.Service.Id
		}
		stopTimes := make([]StopTime, 0, len(t.StopTimes))
		for _, st := range t.StopTimes {
			if st.Stop == nil {
				continue
			}
			stopTimes = append(stopTimes, StopTime{
				StopID:        st.Stop.Id,
				ArrivalTime:   int(st.ArrivalTime / time.Second),
				DepartureTime: int(st.DepartureTime / time.Second),
				StopSequence:  st.StopSequence,
				PickupType:    int(st.PickupType),
				DropOffType:   int(st.DropOffType),
			})
		}
		feed.AddTrip(trip, stopTimes...)

		for _, fr := range t.Frequencies {
			feed.AddFrequency(Frequency{
				TripID:      t.ID,
				StartTime:   int(fr.StartTime / time.Second),
				EndTime:     int(fr.EndTime / time.Second),
				HeadwaySecs: int(fr.Headway / time.Second),
			})
		}
	}
	return feed, nil
}

func readTransfers(path string) ([]Transfer, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "transfers.txt" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return ParseTransfers(rc)
	}
	return nil, nil
}

// ParseTransfers reads transfers.txt including the optional route and trip columns.
func ParseTransfers(r io.Reader) ([]Transfer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transfers.txt header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	transfers := make([]Transfer, 0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transfers.txt line %d: %w", line, err)
		}
		t := Transfer{
			FromStopID:  get(rec, "from_stop_id"),
			ToStopID:    get(rec, "to_stop_id"),
			FromRouteID: get(rec, "from_route_id"),
			ToRouteID:   get(rec, "to_route_id"),
			FromTripID:  get(rec, "from_trip_id"),
			ToTripID:    get(rec, "to_trip_id"),
		}
		if v := get(rec, "transfer_type"); v != "" {
			t.Type, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("transfers.txt line %d transfer_type %q: %w", line, v, ErrMalformedSchedule)
			}
		}
		if v := get(rec, "min_transfer_time"); v != "" {
			t.MinTransferTime, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("transfers.txt line %d min_transfer_time %q: %w", line, v, ErrMalformedSchedule)
			}
			t.HasMinTransferTime = true
		}
		if t.FromStopID == "" || t.ToStopID == "" {
			continue
		}
		transfers = append(transfers, t)
	}
	return transfers, nil
}
