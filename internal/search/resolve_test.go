package search

import (
	"context"
	"strings"

	. "gopkg.in/check.v1"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
)

func (s *EngineSuite) TestResolveByIDWins(c *C) {
	e := s.newEngine(c)
	r := e.Resolve(context.Background(), Request{ID: "4887398", Lat: "42.36", Lon: "-71.06", Query: "boston"})
	c.Assert(r.Source, Equals, SourceID)
	c.Assert(r.City.ID, Equals, int64(4887398))
	c.Assert(r.Warnings, HasLen, 0)
	c.Assert(r.DistanceMiles, IsNil)
}

func (s *EngineSuite) TestResolveFallsToCoordinates(c *C) {
	e := s.newEngine(c)
	r := e.Resolve(context.Background(), Request{ID: "abc", Lat: "42.36", Lon: "-71.06", Query: "chicago"})
	c.Assert(r.Source, Equals, SourceCoordinates)
	c.Assert(r.City.ID, Equals, int64(4930956))
	c.Assert(r.DistanceMiles, NotNil)
	c.Assert(r.Warnings, HasLen, 1)
	c.Assert(strings.Contains(r.Warnings[0], "invalid city id"), Equals, true)
}

func (s *EngineSuite) TestResolveFallsToQuery(c *C) {
	e := s.newEngine(c)
	r := e.Resolve(context.Background(), Request{ID: "999", Lat: "95", Lon: "0", Query: "Springfield, Illinois"})
	c.Assert(r.Source, Equals, SourceQuery)
	c.Assert(r.City.ID, Equals, int64(4250542))
	c.Assert(r.Warnings, HasLen, 2)
	c.Assert(strings.Contains(r.Warnings[0], "no city with id 999"), Equals, true)
	c.Assert(strings.Contains(r.Warnings[1], "no city found near"), Equals, true)
}

func (s *EngineSuite) TestResolveBadCoordinatesText(c *C) {
	e := s.newEngine(c)
	r := e.Resolve(context.Background(), Request{Lat: "north", Lon: "-71", Query: "quincy"})
	c.Assert(r.Source, Equals, SourceQuery)
	c.Assert(r.City.ID, Equals, int64(4948247))
	c.Assert(r.Warnings, HasLen, 1)
	c.Assert(strings.Contains(r.Warnings[0], "invalid coordinates"), Equals, true)
}

func (s *EngineSuite) TestResolveDefaultAlwaysWarns(c *C) {
	e := s.newEngine(c)

	r := e.Resolve(context.Background(), Request{})
	c.Assert(r.Source, Equals, SourceDefault)
	c.Assert(r.City.ID, Equals, int64(5128581))
	c.Assert(r.Warnings, HasLen, 1)
	c.Assert(strings.Contains(r.Warnings[0], "no city specified"), Equals, true)

	r = e.Resolve(context.Background(), Request{ID: "-3", Query: "   "})
	c.Assert(r.Source, Equals, SourceDefault)
	c.Assert(r.Warnings, HasLen, 2)
}

func (s *EngineSuite) TestResolveUnknownDefaultUsesFallback(c *C) {
	e, err := New(Config{DefaultCityID: 777}, WithLogger(logger.Discard()))
	c.Assert(err, IsNil)
	e.SetCities([]city.City{s.cities[3]})

	r := e.Resolve(context.Background(), Request{})
	c.Assert(r.Source, Equals, SourceDefault)
	c.Assert(r.City, Equals, FallbackCity)
	c.Assert(r.Warnings, HasLen, 1)
}

func (s *EngineSuite) TestResolveNotLoadedStillReturnsCity(c *C) {
	e, err := New(Config{DefaultCityID: 5128581}, WithLogger(logger.Discard()))
	c.Assert(err, IsNil)
	r := e.Resolve(context.Background(), Request{ID: "4930956", Query: "boston"})
	c.Assert(r.Source, Equals, SourceDefault)
	c.Assert(r.City, Equals, FallbackCity)
	c.Assert(len(r.Warnings) >= 2, Equals, true)
}
